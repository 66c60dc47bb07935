package raftsnap

import "time"

func nowUnix() int64 {
	return time.Now().UnixNano()
}
