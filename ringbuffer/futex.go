package ringbuffer

import (
	"runtime"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// spinTries is the number of CAS attempts before a lock falls back to a
// futex wait, per the design notes' "adaptive spin + futex fallback" for
// std::mutex on shared-memory objects.
const spinTries = 200

// futexWaitGen blocks until *word no longer equals expected, a spurious
// wakeup occurs, or timeout elapses. Spurious wakeups are acceptable per
// spec §4.8's condvar contract; callers always re-check their predicate in
// a loop.
func futexWaitGen(word *uint32, expected uint32, timeout time.Duration) {
	if timeout < 0 {
		timeout = 0
	}
	ts := unix.NsecToTimespec(timeout.Nanoseconds())
	_, _, errno := unix.Syscall6(unix.SYS_FUTEX, uintptr(unsafe.Pointer(word)), unix.FUTEX_WAIT, uintptr(expected), uintptr(unsafe.Pointer(&ts)), 0, 0)
	_ = errno // EAGAIN/ETIMEDOUT/EINTR are all just "go re-check the predicate"
}

// futexWakeAll wakes every waiter blocked on word, the "broadcast" the
// condvar contract requires after a writer changes the read-predicate (or a
// reader changes the write-predicate).
func futexWakeAll(word *uint32) {
	unix.Syscall6(unix.SYS_FUTEX, uintptr(unsafe.Pointer(word)), unix.FUTEX_WAKE, uintptr(1<<30), 0, 0, 0)
}

// spinLock is the process-shareable adaptive lock from the REDESIGN FLAGS
// "std::mutex on shared-memory objects" note: spin a bounded number of
// times, then block on the lock word itself as a futex.
func spinLock(word *uint32) {
	for i := 0; i < spinTries; i++ {
		if atomic.CompareAndSwapUint32(word, 0, 1) {
			return
		}
		runtime.Gosched()
	}
	for {
		if atomic.CompareAndSwapUint32(word, 0, 1) {
			return
		}
		futexWaitGen(word, 1, 10*time.Millisecond)
	}
}

func spinUnlock(word *uint32) {
	atomic.StoreUint32(word, 0)
}
