package orch

import "time"

// DateInfo — сведения об одной дате для инструмента get_date_info.
//
// Дата в китайском формате, день недели по-английски, timestamp —
// unix секунды с дробной частью.
type DateInfo struct {
	Date      string  `json:"date"`
	Weekday   string  `json:"weekday"`
	Year      int     `json:"year"`
	Month     int     `json:"month"`
	Day       int     `json:"day"`
	Timestamp float64 `json:"timestamp"`
}

// DateInfoAt возвращает сведения о дате now плюс offset дней.
//
// offset 0 — сегодня, 1 — завтра, -1 — вчера.
func DateInfoAt(now time.Time, offset int) DateInfo {
	target := now.AddDate(0, 0, offset)
	return DateInfo{
		Date:      target.Format("2006年01月02日"),
		Weekday:   target.Weekday().String(),
		Year:      target.Year(),
		Month:     int(target.Month()),
		Day:       target.Day(),
		Timestamp: float64(target.UnixNano()) / float64(time.Second),
	}
}
