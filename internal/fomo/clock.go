package fomo

import (
	"sync"
	"time"
)

// istOffset — фиксированное смещение IST (+05:30), переходов на летнее время нет.
const istOffset = 5*60*60 + 30*60

// IST — зона с фиксированным смещением +05:30.
var IST = time.FixedZone("IST", istOffset)

const msPerSecond = int64(time.Second / time.Millisecond)

// NowIST переводит момент времени в IST.
func NowIST(t time.Time) time.Time {
	return t.In(IST)
}

// DispatchCutoff — ближайший еженедельный дедлайн отгрузки.
type DispatchCutoff struct {
	At      time.Time    `json:"at"`
	Weekday time.Weekday `json:"weekday"`
	Hour    int          `json:"hour"`
	Minute  int          `json:"minute"`
}

// Countdown — разбиение оставшегося времени на компоненты. Отрицательных значений не бывает.
type Countdown struct {
	Days    int64 `json:"days"`
	Hours   int64 `json:"hours"`
	Minutes int64 `json:"minutes"`
	Seconds int64 `json:"seconds"`
	TotalMs int64 `json:"total_ms"`
}

// nextWeeklyCutoff ищет ближайшее строго будущее наступление weekday hour:minute в IST.
func nextWeeklyCutoff(now time.Time, hour, minute int, weekday time.Weekday) DispatchCutoff {
	local := NowIST(now)
	daysAhead := (int(weekday) - int(local.Weekday()) + 7) % 7
	at := time.Date(local.Year(), local.Month(), local.Day()+daysAhead, hour, minute, 0, 0, IST)
	if !at.After(local) {
		at = at.AddDate(0, 0, 7)
	}
	return DispatchCutoff{At: at, Weekday: weekday, Hour: hour, Minute: minute}
}

func countdown(now, target time.Time) Countdown {
	total := target.Sub(now).Milliseconds()
	if total < 0 {
		total = 0
	}

	seconds := total / msPerSecond
	return Countdown{
		Days:    seconds / 86400,
		Hours:   (seconds % 86400) / 3600,
		Minutes: (seconds % 3600) / 60,
		Seconds: seconds % 60,
		TotalMs: total,
	}
}

// FormatOptions управляет видом даты в FormatIST.
type FormatOptions struct {
	// Layout перекрывает все остальные опции.
	Layout  string
	Weekday bool
	Time    bool
}

func (o FormatOptions) layout() string {
	if o.Layout != "" {
		return o.Layout
	}
	layout := "2 Jan 2006"
	if o.Weekday {
		layout = "Mon, " + layout
	}
	if o.Time {
		layout += ", 3:04 PM"
	}
	return layout
}

var (
	kolkataOnce sync.Once
	kolkata     *time.Location
)

func kolkataLocation() *time.Location {
	kolkataOnce.Do(func() {
		loc, err := time.LoadLocation("Asia/Kolkata")
		if err != nil {
			loc = IST
		}
		kolkata = loc
	})
	return kolkata
}

// FormatIST форматирует момент времени в зоне Asia/Kolkata.
func FormatIST(t time.Time, opts FormatOptions) string {
	return t.In(kolkataLocation()).Format(opts.layout())
}
