package shmconn

import "errors"

var (
	ErrAlreadyInUse   = errors.New("shmconn: connection already created")
	ErrNotInitialized = errors.New("shmconn: connection not created or attached")
	ErrInvalidParam   = errors.New("shmconn: invalid connection name")
)
