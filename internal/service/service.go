// Package service реализует бизнес-логику магазина игровых аккаунтов.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/gameshop-system/internal/model"
	"github.com/mmeshcher/gameshop-system/internal/repository"
	"github.com/mmeshcher/gameshop-system/internal/validation"
)

// ErrInvalidCredentials возвращается при неверной паре почта/пароль.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrGameNameRequired возвращается, если название игры не заполнено.
	ErrGameNameRequired = errors.New("game name is required")
	// ErrInvalidPrice возвращается, если цена не является положительным числом.
	ErrInvalidPrice = errors.New("price must be a positive number")
	// ErrInvalidProductStatus возвращается при неизвестном статусе товара.
	ErrInvalidProductStatus = errors.New("invalid product status")
	// ErrInvalidOrderStatus возвращается при неизвестном статусе заказа.
	ErrInvalidOrderStatus = errors.New("invalid order status")
	// ErrTopupTooSmall возвращается, если сумма пополнения меньше минимальной.
	ErrTopupTooSmall = errors.New("top-up amount is below the minimum")
	// ErrCustomerCodeMissing возвращается, если у пользователя нет кода клиента.
	ErrCustomerCodeMissing = errors.New("customer code not found")
	// ErrInvalidRole возвращается при неизвестной роли пользователя.
	ErrInvalidRole = errors.New("invalid role")
	// ErrNegativeBalance возвращается при попытке установить отрицательный баланс.
	ErrNegativeBalance = errors.New("balance must be a non-negative number")
	// ErrInvalidCustomerCode возвращается при неверном формате кода клиента.
	ErrInvalidCustomerCode = errors.New("invalid customer code format")
	// ErrNoFieldsToUpdate возвращается, если в запросе на обновление нет ни одного поля.
	ErrNoFieldsToUpdate = errors.New("no fields to update")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateUser(ctx context.Context, username, email string, passwordHash []byte, customerCode string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	CustomerCodeExists(ctx context.Context, code string) (bool, error)
	GetBalance(ctx context.Context, userID int64) (int64, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, id int64, upd repository.UserUpdate) (*model.User, error)
	CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	ListProducts(ctx context.Context, onlyAvailable bool) ([]model.Product, error)
	UpdateProduct(ctx context.Context, id int64, p *model.Product) (*model.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	CreateOrder(ctx context.Context, userID, productID int64, paymentMethod string) (*model.Order, error)
	GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
	ListAllOrders(ctx context.Context) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus) (*model.Order, error)
	CreateTopupRequest(ctx context.Context, userID, amountCents int64, customerCode string) (*model.TopupRequest, error)
	GetTopupRequestsByUser(ctx context.Context, userID int64) ([]model.TopupRequest, error)
	ListTopupRequests(ctx context.Context) ([]model.TopupRequest, error)
	ApproveTopupRequest(ctx context.Context, id, adminID int64, notes *string) (int64, error)
	RejectTopupRequest(ctx context.Context, id, adminID int64, notes *string) error
	GetStats(ctx context.Context) (*model.Stats, error)
}

// Service содержит бизнес-логику магазина игровых аккаунтов.
type Service struct {
	repo          Repository
	minTopupCents int64
}

// NewService создаёт новый сервис. minTopupAmount — минимальная сумма
// пополнения в основных денежных единицах.
func NewService(repo Repository, minTopupAmount float64) *Service {
	return &Service{
		repo:          repo,
		minTopupCents: toCents(minTopupAmount),
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

func toCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

// RegisterUser регистрирует нового пользователя: хэширует пароль и
// закрепляет за пользователем уникальный код клиента.
func (s *Service) RegisterUser(ctx context.Context, username, email, password string) (*model.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	// Коллизия кода возможна и после проверки на существование,
	// поэтому занятый код обрабатывается повторной попыткой.
	for attempt := 0; attempt < 5; attempt++ {
		code, err := generateCustomerCode()
		if err != nil {
			return nil, err
		}

		exists, err := s.repo.CustomerCodeExists(ctx, code)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		u, err := s.repo.CreateUser(ctx, username, email, hash, code)
		if errors.Is(err, repository.ErrCustomerCodeTaken) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return u, nil
	}

	return nil, errors.New("generate customer code: attempts exhausted")
}

// generateCustomerCode возвращает код клиента: 4 случайных байта
// в верхнем hex-регистре.
func generateCustomerCode() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate customer code: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}

// AuthenticateUser проверяет почту и пароль пользователя.
func (s *Service) AuthenticateUser(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

// GetUserByID возвращает пользователя по идентификатору.
func (s *Service) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// ProductInput содержит поля товара из запроса на создание или обновление.
// Денежные поля — в основных единицах.
type ProductInput struct {
	GameName      string
	AccountLevel  string
	Price         float64
	ImportPrice   float64
	Description   string
	AccountInfo   string
	FeaturedImage string
	Images        []string
	Status        string
}

func (in *ProductInput) toModel() (*model.Product, error) {
	gameName := strings.TrimSpace(in.GameName)
	if gameName == "" {
		return nil, ErrGameNameRequired
	}

	if in.Price <= 0 {
		return nil, ErrInvalidPrice
	}

	status := model.ProductStatusAvailable
	if in.Status != "" {
		status = model.ProductStatus(in.Status)
		switch status {
		case model.ProductStatusAvailable, model.ProductStatusSold, model.ProductStatusPending:
		default:
			return nil, ErrInvalidProductStatus
		}
	}

	var featured *string
	if v := strings.TrimSpace(in.FeaturedImage); v != "" {
		featured = &v
	}

	images := make([]string, 0, len(in.Images))
	for _, img := range in.Images {
		if v := strings.TrimSpace(img); v != "" {
			images = append(images, v)
		}
	}

	return &model.Product{
		GameName:         gameName,
		AccountLevel:     strings.TrimSpace(in.AccountLevel),
		PriceCents:       toCents(in.Price),
		ImportPriceCents: toCents(in.ImportPrice),
		Description:      strings.TrimSpace(in.Description),
		AccountInfo:      strings.TrimSpace(in.AccountInfo),
		FeaturedImage:    featured,
		Images:           images,
		Status:           status,
	}, nil
}

// CreateProduct создаёт товар. Новый товар всегда в статусе available.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (*model.Product, error) {
	in.Status = ""
	p, err := in.toModel()
	if err != nil {
		return nil, err
	}
	return s.repo.CreateProduct(ctx, p)
}

// UpdateProduct перезаписывает поля товара. Администратор может выставить
// любой статус, пустой статус трактуется как available.
func (s *Service) UpdateProduct(ctx context.Context, id int64, in ProductInput) (*model.Product, error) {
	p, err := in.toModel()
	if err != nil {
		return nil, err
	}
	return s.repo.UpdateProduct(ctx, id, p)
}

// ListProducts возвращает каталог. Обычный пользователь видит только
// товары в статусе available.
func (s *Service) ListProducts(ctx context.Context, asAdmin bool) ([]model.Product, error) {
	return s.repo.ListProducts(ctx, !asAdmin)
}

// GetProduct возвращает товар. Для обычного пользователя товар не в статусе
// available неотличим от отсутствующего.
func (s *Service) GetProduct(ctx context.Context, id int64, asAdmin bool) (*model.Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if !asAdmin && p.Status != model.ProductStatusAvailable {
		return nil, repository.ErrProductNotFound
	}

	return p, nil
}

// DeleteProduct удаляет товар из каталога.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	return s.repo.DeleteProduct(ctx, id)
}

// CreateOrder оформляет покупку товара. Пустой способ оплаты трактуется
// как оплата с баланса.
func (s *Service) CreateOrder(ctx context.Context, userID, productID int64, paymentMethod string) (*model.Order, error) {
	if paymentMethod == "" {
		paymentMethod = model.PaymentMethodWallet
	}
	return s.repo.CreateOrder(ctx, userID, productID, paymentMethod)
}

// GetOrdersByUser возвращает заказы пользователя. Учётные данные аккаунта
// остаются только у завершённых заказов.
func (s *Service) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	orders, err := s.repo.GetOrdersByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	for i := range orders {
		if orders[i].Status != model.OrderStatusCompleted {
			orders[i].AccountInfo = nil
		}
	}

	return orders, nil
}

// ListAllOrders возвращает все заказы с данными покупателей.
func (s *Service) ListAllOrders(ctx context.Context) ([]model.Order, error) {
	return s.repo.ListAllOrders(ctx)
}

// UpdateOrderStatus переводит заказ в указанный статус.
func (s *Service) UpdateOrderStatus(ctx context.Context, id int64, status string) (*model.Order, error) {
	st := model.OrderStatus(status)
	switch st {
	case model.OrderStatusPending, model.OrderStatusCompleted, model.OrderStatusCancelled:
	default:
		return nil, ErrInvalidOrderStatus
	}

	return s.repo.UpdateOrderStatus(ctx, id, st)
}

// GetBalance возвращает баланс пользователя в основных единицах.
func (s *Service) GetBalance(ctx context.Context, userID int64) (float64, error) {
	cents, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		return 0, err
	}
	return float64(cents) / 100, nil
}

// CreateTopupRequest создаёт заявку на пополнение. В заявке фиксируется
// код клиента, который пользователь укажет в назначении перевода.
func (s *Service) CreateTopupRequest(ctx context.Context, userID int64, amount float64) (*model.TopupRequest, error) {
	amountCents := toCents(amount)
	if amountCents < s.minTopupCents {
		return nil, ErrTopupTooSmall
	}

	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if u.CustomerCode == "" {
		return nil, ErrCustomerCodeMissing
	}

	return s.repo.CreateTopupRequest(ctx, userID, amountCents, u.CustomerCode)
}

// GetTopupRequestsByUser возвращает заявки пользователя.
func (s *Service) GetTopupRequestsByUser(ctx context.Context, userID int64) ([]model.TopupRequest, error) {
	return s.repo.GetTopupRequestsByUser(ctx, userID)
}

// ListTopupRequests возвращает все заявки с данными заявителей.
func (s *Service) ListTopupRequests(ctx context.Context) ([]model.TopupRequest, error) {
	return s.repo.ListTopupRequests(ctx)
}

// ApproveTopup подтверждает заявку и возвращает новый баланс пользователя
// в основных единицах.
func (s *Service) ApproveTopup(ctx context.Context, id, adminID int64, notes string) (float64, error) {
	newBalance, err := s.repo.ApproveTopupRequest(ctx, id, adminID, optionalNotes(notes))
	if err != nil {
		return 0, err
	}
	return float64(newBalance) / 100, nil
}

// RejectTopup отклоняет заявку без изменения баланса.
func (s *Service) RejectTopup(ctx context.Context, id, adminID int64, notes string) error {
	return s.repo.RejectTopupRequest(ctx, id, adminID, optionalNotes(notes))
}

func optionalNotes(notes string) *string {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil
	}
	return &notes
}

// ListUsers возвращает всех пользователей.
func (s *Service) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.repo.ListUsers(ctx)
}

// UserUpdateInput содержит поля частичного обновления пользователя.
// Баланс — в основных единицах.
type UserUpdateInput struct {
	Username     *string
	Email        *string
	Role         *string
	Balance      *float64
	CustomerCode *string
}

// UpdateUser применяет частичное обновление пользователя администратором.
func (s *Service) UpdateUser(ctx context.Context, id int64, in UserUpdateInput) (*model.User, error) {
	upd := repository.UserUpdate{}
	touched := false

	if in.Username != nil {
		username := strings.TrimSpace(*in.Username)
		upd.Username = &username
		touched = true
	}

	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		upd.Email = &email
		touched = true
	}

	if in.Role != nil {
		role := model.Role(*in.Role)
		if role != model.RoleUser && role != model.RoleAdmin {
			return nil, ErrInvalidRole
		}
		upd.Role = &role
		touched = true
	}

	if in.Balance != nil {
		if *in.Balance < 0 {
			return nil, ErrNegativeBalance
		}
		cents := toCents(*in.Balance)
		upd.BalanceCents = &cents
		touched = true
	}

	if in.CustomerCode != nil {
		code := strings.TrimSpace(*in.CustomerCode)
		if !validation.IsValidCustomerCode(code) {
			return nil, ErrInvalidCustomerCode
		}
		upd.CustomerCode = &code
		touched = true
	}

	if !touched {
		return nil, ErrNoFieldsToUpdate
	}

	return s.repo.UpdateUser(ctx, id, upd)
}

// GetStats возвращает сводные показатели магазина.
func (s *Service) GetStats(ctx context.Context) (*model.Stats, error) {
	return s.repo.GetStats(ctx)
}
