// Package clock 抽象时间源与定时器，运行时用真实时钟，测试用 Fake 手动推进。
package clock

import "time"

// Timer 可取消的定时器
type Timer interface {
	Stop() bool
}

// Clock 时间源
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// Real 返回基于 time 包的时钟
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
