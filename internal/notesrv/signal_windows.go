//go:build windows

package notesrv

import "os"

func gracefulSignal() os.Signal {
	return os.Kill
}
