// Package models содержит доменные структуры биллинга: тарифные планы,
// платежи и подписки пользователей, а также вспомогательные типы для
// приёма данных из JSON-запросов.
package models

// Plan представляет тарифный план из каталога. Каталог доступен
// только для чтения: записи создаются миграциями, сервис их не изменяет.
type Plan struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DisplayName  string `json:"display_name"`
	PriceMonthly int64  `json:"price_monthly"` // цена в центах за месяц
	PriceYearly  int64  `json:"price_yearly"`  // цена в центах за год
	FreePromo    bool   `json:"free_promo"`    // промо-план активируется без оплаты
	Active       bool   `json:"active"`
}
