// Package model содержит доменные сущности магазина игровых аккаунтов.
package model

import "time"

// Role описывает роль пользователя в системе.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User представляет зарегистрированного пользователя магазина.
// Баланс хранится в копейках и изменяется только оплатой заказа и
// подтверждением заявки на пополнение.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash []byte
	Role         Role
	BalanceCents int64
	CustomerCode string
	CreatedAt    time.Time
}

// ProductStatus описывает статус товара в каталоге.
type ProductStatus string

const (
	ProductStatusAvailable ProductStatus = "available"
	ProductStatusSold      ProductStatus = "sold"
	ProductStatusPending   ProductStatus = "pending"
)

// Product описывает игровой аккаунт, выставленный на продажу.
// AccountInfo содержит учётные данные аккаунта и виден только администратору
// либо покупателю завершённого заказа.
type Product struct {
	ID               int64
	GameName         string
	AccountLevel     string
	PriceCents       int64
	ImportPriceCents int64
	Description      string
	AccountInfo      string
	FeaturedImage    *string
	Images           []string
	Status           ProductStatus
	CreatedAt        time.Time
}

// OrderStatus описывает статус заказа.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// PaymentMethodWallet — оплата с баланса. Других способов оплаты нет:
// заказ с иным способом остаётся в статусе pending.
const PaymentMethodWallet = "wallet"

// Order связывает покупателя и товар на момент покупки и фиксирует цену.
// Поля GameName, AccountLevel, AccountInfo заполняются из связанного товара,
// Username и Email — из данных покупателя (только в административных выборках).
type Order struct {
	ID              int64
	UserID          int64
	ProductID       int64
	TotalPriceCents int64
	PaymentMethod   string
	Status          OrderStatus
	CreatedAt       time.Time

	GameName     string
	AccountLevel string
	AccountInfo  *string
	Username     string
	Email        string
}

// TopupStatus описывает статус заявки на пополнение баланса.
type TopupStatus string

const (
	TopupStatusPending  TopupStatus = "pending"
	TopupStatusApproved TopupStatus = "approved"
	TopupStatusRejected TopupStatus = "rejected"
)

// TopupRequest описывает заявку пользователя на пополнение баланса.
// CustomerCode — код клиента, который пользователь указывает в назначении
// банковского перевода. После выхода из статуса pending заявка неизменяема.
type TopupRequest struct {
	ID           int64
	UserID       int64
	AmountCents  int64
	CustomerCode string
	Status       TopupStatus
	Notes        *string
	ApprovedBy   *int64
	ApprovedAt   *time.Time
	CreatedAt    time.Time

	Username string
	Email    string
}

// Stats содержит сводные показатели магазина для административной панели.
// Денежные суммы — в копейках.
type Stats struct {
	TotalUsers           int64
	TotalProducts        int64
	TotalOrders          int64
	TotalRevenueCents    int64
	TotalImportCostCents int64
	TotalProfitCents     int64
}
