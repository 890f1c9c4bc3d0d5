// Package period содержит арифметику расчётных периодов подписки.
package period

import "time"

// Add возвращает конец расчётного периода, начинающегося в start.
// Для годового периода прибавляется ровно один год, для месячного —
// один месяц; неизвестное значение трактуется как месячный период.
func Add(start time.Time, billingPeriod string) time.Time {
	if billingPeriod == "yearly" {
		return start.AddDate(1, 0, 0)
	}
	return start.AddDate(0, 1, 0)
}
