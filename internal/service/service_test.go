package service

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/gameshop-system/internal/model"
	"github.com/mmeshcher/gameshop-system/internal/repository"
	"github.com/mmeshcher/gameshop-system/internal/validation"
)

type stubRepo struct {
	createdUser     *model.User
	createUserErr   error
	createUserCalls []string

	userByEmail    *model.User
	userByEmailErr error

	userByID    *model.User
	userByIDErr error

	codeExists bool

	balanceCents int64
	balanceErr   error

	users []model.User

	updatedUser   *model.User
	updateUserErr error
	lastUserUpd   repository.UserUpdate

	product       *model.Product
	productErr    error
	products      []model.Product
	createdInput  *model.Product
	updatedInput  *model.Product
	deleteErr     error

	order    *model.Order
	orderErr error
	orders   []model.Order

	updatedOrder      *model.Order
	updateOrderErr    error
	updateOrderStatus model.OrderStatus

	topup             *model.TopupRequest
	topupErr          error
	topups            []model.TopupRequest
	lastTopupAmount   int64
	lastTopupCode     string
	approveBalance    int64
	approveErr        error
	lastApproveNotes  *string
	rejectErr         error

	stats    *model.Stats
	statsErr error
}

func (s *stubRepo) Close() error { return nil }

func (s *stubRepo) CreateUser(ctx context.Context, username, email string, passwordHash []byte, customerCode string) (*model.User, error) {
	s.createUserCalls = append(s.createUserCalls, customerCode)
	if s.createUserErr != nil {
		return nil, s.createUserErr
	}
	if s.createdUser != nil {
		return s.createdUser, nil
	}
	return &model.User{
		ID:           1,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         model.RoleUser,
		CustomerCode: customerCode,
	}, nil
}

func (s *stubRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.userByEmail, s.userByEmailErr
}

func (s *stubRepo) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return s.userByID, s.userByIDErr
}

func (s *stubRepo) CustomerCodeExists(ctx context.Context, code string) (bool, error) {
	return s.codeExists, nil
}

func (s *stubRepo) GetBalance(ctx context.Context, userID int64) (int64, error) {
	return s.balanceCents, s.balanceErr
}

func (s *stubRepo) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.users, nil
}

func (s *stubRepo) UpdateUser(ctx context.Context, id int64, upd repository.UserUpdate) (*model.User, error) {
	s.lastUserUpd = upd
	return s.updatedUser, s.updateUserErr
}

func (s *stubRepo) CreateProduct(ctx context.Context, p *model.Product) (*model.Product, error) {
	s.createdInput = p
	return p, s.productErr
}

func (s *stubRepo) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	return s.product, s.productErr
}

func (s *stubRepo) ListProducts(ctx context.Context, onlyAvailable bool) ([]model.Product, error) {
	return s.products, s.productErr
}

func (s *stubRepo) UpdateProduct(ctx context.Context, id int64, p *model.Product) (*model.Product, error) {
	s.updatedInput = p
	return p, s.productErr
}

func (s *stubRepo) DeleteProduct(ctx context.Context, id int64) error {
	return s.deleteErr
}

func (s *stubRepo) CreateOrder(ctx context.Context, userID, productID int64, paymentMethod string) (*model.Order, error) {
	return s.order, s.orderErr
}

func (s *stubRepo) GetOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return s.orders, s.orderErr
}

func (s *stubRepo) ListAllOrders(ctx context.Context) ([]model.Order, error) {
	return s.orders, s.orderErr
}

func (s *stubRepo) UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus) (*model.Order, error) {
	s.updateOrderStatus = status
	return s.updatedOrder, s.updateOrderErr
}

func (s *stubRepo) CreateTopupRequest(ctx context.Context, userID, amountCents int64, customerCode string) (*model.TopupRequest, error) {
	s.lastTopupAmount = amountCents
	s.lastTopupCode = customerCode
	return s.topup, s.topupErr
}

func (s *stubRepo) GetTopupRequestsByUser(ctx context.Context, userID int64) ([]model.TopupRequest, error) {
	return s.topups, s.topupErr
}

func (s *stubRepo) ListTopupRequests(ctx context.Context) ([]model.TopupRequest, error) {
	return s.topups, s.topupErr
}

func (s *stubRepo) ApproveTopupRequest(ctx context.Context, id, adminID int64, notes *string) (int64, error) {
	s.lastApproveNotes = notes
	return s.approveBalance, s.approveErr
}

func (s *stubRepo) RejectTopupRequest(ctx context.Context, id, adminID int64, notes *string) error {
	return s.rejectErr
}

func (s *stubRepo) GetStats(ctx context.Context) (*model.Stats, error) {
	return s.stats, s.statsErr
}

func TestRegisterUser_HashesPasswordAndAssignsCode(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, 10000)

	u, err := svc.RegisterUser(context.Background(), "buyer", "buyer@example.com", "secret")
	if err != nil {
		t.Fatalf("RegisterUser error: %v", err)
	}

	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte("secret")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}

	if !validation.IsValidCustomerCode(u.CustomerCode) {
		t.Fatalf("customer code %q has invalid format", u.CustomerCode)
	}
}

func TestRegisterUser_RetriesOnTakenCode(t *testing.T) {
	repo := &stubRepo{
		createUserErr: repository.ErrCustomerCodeTaken,
	}
	svc := NewService(repo, 10000)

	_, err := svc.RegisterUser(context.Background(), "buyer", "buyer@example.com", "secret")
	if err == nil {
		t.Fatalf("expected error when every code is taken")
	}

	if len(repo.createUserCalls) != 5 {
		t.Fatalf("create attempts = %d, want 5", len(repo.createUserCalls))
	}
}

func TestRegisterUser_PropagatesDuplicateError(t *testing.T) {
	repo := &stubRepo{
		createUserErr: repository.ErrUserExists,
	}
	svc := NewService(repo, 10000)

	_, err := svc.RegisterUser(context.Background(), "buyer", "buyer@example.com", "secret")
	if !errors.Is(err, repository.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthenticateUser(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	tests := []struct {
		name     string
		repo     *stubRepo
		password string
		wantErr  error
	}{
		{
			name: "success",
			repo: &stubRepo{
				userByEmail: &model.User{ID: 1, Email: "u@example.com", PasswordHash: hash},
			},
			password: "correct",
		},
		{
			name: "wrong password",
			repo: &stubRepo{
				userByEmail: &model.User{ID: 1, Email: "u@example.com", PasswordHash: hash},
			},
			password: "wrong",
			wantErr:  ErrInvalidCredentials,
		},
		{
			name: "unknown email",
			repo: &stubRepo{
				userByEmailErr: repository.ErrUserNotFound,
			},
			password: "correct",
			wantErr:  ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.repo, 10000)

			_, err := svc.AuthenticateUser(context.Background(), "u@example.com", tt.password)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("AuthenticateUser error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateProduct_Validation(t *testing.T) {
	tests := []struct {
		name    string
		input   ProductInput
		wantErr error
	}{
		{
			name:    "empty game name",
			input:   ProductInput{GameName: "   ", Price: 100},
			wantErr: ErrGameNameRequired,
		},
		{
			name:    "zero price",
			input:   ProductInput{GameName: "Genshin Impact", Price: 0},
			wantErr: ErrInvalidPrice,
		},
		{
			name:    "negative price",
			input:   ProductInput{GameName: "Genshin Impact", Price: -5},
			wantErr: ErrInvalidPrice,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&stubRepo{}, 10000)

			_, err := svc.CreateProduct(context.Background(), tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateProduct_FiltersBlankImagesAndConvertsPrice(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, 10000)

	p, err := svc.CreateProduct(context.Background(), ProductInput{
		GameName: "  Genshin Impact  ",
		Price:    100000,
		Images:   []string{" https://img/1.png ", "", "   ", "https://img/2.png"},
	})
	if err != nil {
		t.Fatalf("CreateProduct error: %v", err)
	}

	if p.GameName != "Genshin Impact" {
		t.Fatalf("game name = %q, want trimmed", p.GameName)
	}
	if p.PriceCents != 10000000 {
		t.Fatalf("price cents = %d, want 10000000", p.PriceCents)
	}
	if len(p.Images) != 2 {
		t.Fatalf("images = %v, want 2 non-blank entries", p.Images)
	}
	if p.Status != model.ProductStatusAvailable {
		t.Fatalf("status = %q, want available", p.Status)
	}
}

func TestUpdateProduct_RejectsUnknownStatus(t *testing.T) {
	svc := NewService(&stubRepo{}, 10000)

	_, err := svc.UpdateProduct(context.Background(), 1, ProductInput{
		GameName: "Genshin Impact",
		Price:    100,
		Status:   "archived",
	})
	if !errors.Is(err, ErrInvalidProductStatus) {
		t.Fatalf("error = %v, want ErrInvalidProductStatus", err)
	}
}

func TestGetProduct_HidesNonAvailableFromUser(t *testing.T) {
	repo := &stubRepo{
		product: &model.Product{ID: 1, GameName: "Genshin Impact", Status: model.ProductStatusSold},
	}
	svc := NewService(repo, 10000)

	_, err := svc.GetProduct(context.Background(), 1, false)
	if !errors.Is(err, repository.ErrProductNotFound) {
		t.Fatalf("error = %v, want ErrProductNotFound for non-admin", err)
	}

	p, err := svc.GetProduct(context.Background(), 1, true)
	if err != nil {
		t.Fatalf("GetProduct as admin error: %v", err)
	}
	if p.ID != 1 {
		t.Fatalf("unexpected product: %+v", p)
	}
}

func TestGetOrdersByUser_StripsAccountInfo(t *testing.T) {
	info := "login:pass"
	repo := &stubRepo{
		orders: []model.Order{
			{ID: 1, Status: model.OrderStatusCompleted, AccountInfo: &info},
			{ID: 2, Status: model.OrderStatusPending, AccountInfo: &info},
			{ID: 3, Status: model.OrderStatusCancelled, AccountInfo: &info},
		},
	}
	svc := NewService(repo, 10000)

	orders, err := svc.GetOrdersByUser(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetOrdersByUser error: %v", err)
	}

	if orders[0].AccountInfo == nil || *orders[0].AccountInfo != info {
		t.Fatalf("completed order must keep account info")
	}
	if orders[1].AccountInfo != nil {
		t.Fatalf("pending order must not expose account info")
	}
	if orders[2].AccountInfo != nil {
		t.Fatalf("cancelled order must not expose account info")
	}
}

func TestUpdateOrderStatus_RejectsUnknownStatus(t *testing.T) {
	svc := NewService(&stubRepo{}, 10000)

	_, err := svc.UpdateOrderStatus(context.Background(), 1, "shipped")
	if !errors.Is(err, ErrInvalidOrderStatus) {
		t.Fatalf("error = %v, want ErrInvalidOrderStatus", err)
	}
}

func TestGetBalance_ConvertsToMajorUnits(t *testing.T) {
	repo := &stubRepo{balanceCents: 15000000}
	svc := NewService(repo, 10000)

	balance, err := svc.GetBalance(context.Background(), 1)
	if err != nil {
		t.Fatalf("GetBalance error: %v", err)
	}
	if balance != 150000 {
		t.Fatalf("balance = %v, want 150000", balance)
	}
}

func TestCreateTopupRequest(t *testing.T) {
	tests := []struct {
		name    string
		repo    *stubRepo
		amount  float64
		wantErr error
	}{
		{
			name: "below minimum",
			repo: &stubRepo{
				userByID: &model.User{ID: 1, CustomerCode: "A1B2C3D4"},
			},
			amount:  9999,
			wantErr: ErrTopupTooSmall,
		},
		{
			name: "negative amount",
			repo: &stubRepo{
				userByID: &model.User{ID: 1, CustomerCode: "A1B2C3D4"},
			},
			amount:  -50,
			wantErr: ErrTopupTooSmall,
		},
		{
			name: "missing customer code",
			repo: &stubRepo{
				userByID: &model.User{ID: 1},
			},
			amount:  50000,
			wantErr: ErrCustomerCodeMissing,
		},
		{
			name: "success at exact minimum",
			repo: &stubRepo{
				userByID: &model.User{ID: 1, CustomerCode: "A1B2C3D4"},
				topup:    &model.TopupRequest{ID: 10, AmountCents: 1000000, CustomerCode: "A1B2C3D4"},
			},
			amount: 10000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.repo, 10000)

			_, err := svc.CreateTopupRequest(context.Background(), 1, tt.amount)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("CreateTopupRequest error: %v", err)
				}
				if tt.repo.lastTopupCode != "A1B2C3D4" {
					t.Fatalf("customer code = %q, want A1B2C3D4", tt.repo.lastTopupCode)
				}
				if tt.repo.lastTopupAmount != 1000000 {
					t.Fatalf("amount cents = %d, want 1000000", tt.repo.lastTopupAmount)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestApproveTopup_ConvertsNewBalance(t *testing.T) {
	repo := &stubRepo{approveBalance: 7000000}
	svc := NewService(repo, 10000)

	newBalance, err := svc.ApproveTopup(context.Background(), 1, 2, "bank transfer received")
	if err != nil {
		t.Fatalf("ApproveTopup error: %v", err)
	}
	if newBalance != 70000 {
		t.Fatalf("new balance = %v, want 70000", newBalance)
	}
	if repo.lastApproveNotes == nil || *repo.lastApproveNotes != "bank transfer received" {
		t.Fatalf("notes not passed to repository")
	}
}

func TestApproveTopup_EmptyNotesStoredAsNull(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo, 10000)

	if _, err := svc.ApproveTopup(context.Background(), 1, 2, "   "); err != nil {
		t.Fatalf("ApproveTopup error: %v", err)
	}
	if repo.lastApproveNotes != nil {
		t.Fatalf("blank notes must be stored as NULL, got %q", *repo.lastApproveNotes)
	}
}

func TestUpdateUser_Validation(t *testing.T) {
	role := "superuser"
	negative := -1.0
	badCode := "xyz"

	tests := []struct {
		name    string
		input   UserUpdateInput
		wantErr error
	}{
		{
			name:    "no fields",
			input:   UserUpdateInput{},
			wantErr: ErrNoFieldsToUpdate,
		},
		{
			name:    "unknown role",
			input:   UserUpdateInput{Role: &role},
			wantErr: ErrInvalidRole,
		},
		{
			name:    "negative balance",
			input:   UserUpdateInput{Balance: &negative},
			wantErr: ErrNegativeBalance,
		},
		{
			name:    "bad customer code",
			input:   UserUpdateInput{CustomerCode: &badCode},
			wantErr: ErrInvalidCustomerCode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&stubRepo{}, 10000)

			_, err := svc.UpdateUser(context.Background(), 1, tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestUpdateUser_ConvertsBalanceToCents(t *testing.T) {
	balance := 70000.0
	repo := &stubRepo{
		updatedUser: &model.User{ID: 1, BalanceCents: 7000000},
	}
	svc := NewService(repo, 10000)

	if _, err := svc.UpdateUser(context.Background(), 1, UserUpdateInput{Balance: &balance}); err != nil {
		t.Fatalf("UpdateUser error: %v", err)
	}

	if repo.lastUserUpd.BalanceCents == nil || *repo.lastUserUpd.BalanceCents != 7000000 {
		t.Fatalf("balance cents not converted: %+v", repo.lastUserUpd)
	}
}
