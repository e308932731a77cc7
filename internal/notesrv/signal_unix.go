//go:build unix

package notesrv

import "syscall"

func gracefulSignal() syscall.Signal {
	return syscall.SIGTERM
}
