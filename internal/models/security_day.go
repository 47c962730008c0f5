package models

import (
	"sort"
	"time"
)

// Panel column names shared by loaders, repositories and engines
const (
	ColTradingDay       = "TradingDay"
	ColSecuCode         = "SecuCode"
	ColTradeStatus      = "TradeStatus"
	ColSwingStatus      = "SwingStatus"
	ColStopTradeStatus3 = "StopTradeStatus3"
	ColStopTradeStatus5 = "StopTradeStatus5"
	ColIpoStatus        = "IpoStatus"
	ColSelect           = "select"
	ColScore            = "score"
	ColNextRet          = "next_ret"
	ColWeights          = "weights"
	ColPrevWeight       = "w_prev"
	ColLockedWeight     = "locked_weight"
)

// TradeFlags holds the tradability filters observed for a security on a day
type TradeFlags struct {
	TradeStatus      int `db:"trade_status" json:"trade_status"`
	SwingStatus      int `db:"swing_status" json:"swing_status"`
	StopTradeStatus3 int `db:"stop_trade_status3" json:"stop_trade_status3"`
	StopTradeStatus5 int `db:"stop_trade_status5" json:"stop_trade_status5"`
	IpoStatus        int `db:"ipo_status" json:"ipo_status"`
}

// Tradable reports whether the security can be bought or sold on the day
func (f TradeFlags) Tradable() bool {
	return f.TradeStatus == 1 &&
		f.SwingStatus == 1 &&
		f.StopTradeStatus3 == 1 &&
		f.StopTradeStatus5 == 0 &&
		f.IpoStatus == 1
}

// SecurityDay is one row of the trading panel
type SecurityDay struct {
	TradingDay   time.Time          `db:"trading_day" json:"trading_day"`
	SecuCode     int64              `db:"secu_code" json:"secu_code"`
	Flags        TradeFlags         `json:"flags"`
	Select       int                `db:"select_flag" json:"select"`
	Score        float64            `db:"score" json:"score"`
	NextRet      float64            `db:"next_ret" json:"next_ret"`
	Weight       float64            `db:"weight" json:"weight"`
	PrevWeight   float64            `json:"w_prev"`
	LockedWeight float64            `json:"locked_weight"`
	Factors      map[string]float64 `db:"factors" json:"factors,omitempty"`
}

// Tradable reports whether the record passes every tradability filter
func (s SecurityDay) Tradable() bool {
	return s.Flags.Tradable()
}

// Selected reports whether the selector picked the record
func (s SecurityDay) Selected() bool {
	return s.Select == 1
}

// Valid reports whether the record can receive newly distributed weight
func (s SecurityDay) Valid() bool {
	return s.Tradable() && s.Selected()
}

// Panel is an ordered set of security-day records
type Panel []SecurityDay

// DayRange indexes the records of one trading day within a sorted panel
type DayRange struct {
	Day   time.Time
	Start int
	End   int
}

// Len returns the number of records in the range
func (d DayRange) Len() int {
	return d.End - d.Start
}

// Clone returns a deep copy of the panel
func (p Panel) Clone() Panel {
	out := make(Panel, len(p))
	copy(out, p)
	for i := range out {
		if p[i].Factors == nil {
			continue
		}
		factors := make(map[string]float64, len(p[i].Factors))
		for k, v := range p[i].Factors {
			factors[k] = v
		}
		out[i].Factors = factors
	}
	return out
}

// Sort orders the panel by (TradingDay, SecuCode) in place
func (p Panel) Sort() {
	sort.SliceStable(p, func(i, j int) bool {
		di, dj := DateOf(p[i].TradingDay), DateOf(p[j].TradingDay)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return p[i].SecuCode < p[j].SecuCode
	})
}

// Days groups a sorted panel into contiguous per-day ranges
func (p Panel) Days() []DayRange {
	if len(p) == 0 {
		return nil
	}
	ranges := make([]DayRange, 0)
	start := 0
	current := DateOf(p[0].TradingDay)
	for i := 1; i < len(p); i++ {
		day := DateOf(p[i].TradingDay)
		if day.Equal(current) {
			continue
		}
		ranges = append(ranges, DayRange{Day: current, Start: start, End: i})
		start = i
		current = day
	}
	ranges = append(ranges, DayRange{Day: current, Start: start, End: len(p)})
	return ranges
}

// Window returns the records whose trading day falls in [start, end], compared by date only
func (p Panel) Window(start, end time.Time) Panel {
	from, to := DateOf(start), DateOf(end)
	out := make(Panel, 0, len(p))
	for _, rec := range p {
		day := DateOf(rec.TradingDay)
		if day.Before(from) || day.After(to) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// DateOf truncates t to its calendar date in UTC
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
