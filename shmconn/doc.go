// Package shmconn implements the named shared-memory connection lifecycle
// the original source's IasAvbVideoShmConnection describes: a segment named
// `avb_<connectionName>` that a creator brings up once and a bounded number
// of clients attach to and detach from independently. The creator alone
// owns destruction (spec §9 supplement); clients never unlink the segment.
package shmconn
