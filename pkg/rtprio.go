//go:build linux

package pkg

import (
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// AudioNice is the negative nice value applied to the calling OS thread
// by RaiseThreadPriority: enough to be scheduled ahead of ordinary work
// without switching to SCHED_FIFO. A negative nice value needs
// CAP_SYS_NICE (or a matching RLIMIT_NICE); see RaiseThreadPriority for
// what happens without it.
const AudioNice = -11

// RaiseThreadPriority locks the calling goroutine to its current OS
// thread and lowers that thread's nice value, so the transfer pump keeps
// up with USB completion deadlines under load from the rest of the
// process. It must be called from the goroutine that will run the pump,
// before it starts looping, and that goroutine must never migrate off
// the locked thread.
//
// Without CAP_SYS_NICE, Setpriority can only raise priority up to nice
// 0; a failure here is logged and otherwise ignored, since the pump
// still functions correctly at the default priority, only with worse
// worst-case latency.
func RaiseThreadPriority(log *zap.Logger) {
	runtime.LockOSThread()
	tid := unix.Gettid()
	if err := unix.Setpriority(unix.PRIO_PROCESS, tid, AudioNice); err != nil {
		log.Warn("can't raise transfer pump thread priority", ZapErr(err))
	}
}
