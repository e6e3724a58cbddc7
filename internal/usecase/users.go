package usecase

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"SentiPulse/internal/domain/models"
	domrepo "SentiPulse/internal/domain/repository"
	xutil "SentiPulse/pkg/util"

	"golang.org/x/crypto/bcrypt"
)

// Users manages accounts and their watchlists.
type Users struct {
	users       domrepo.UserStore
	instruments domrepo.InstrumentStore
	cost        int
}

func NewUsers(users domrepo.UserStore, instruments domrepo.InstrumentStore) *Users {
	return &Users{users: users, instruments: instruments, cost: bcrypt.DefaultCost}
}

func (u *Users) Create(ctx context.Context, req *models.CreateUserRequest) (*models.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validateStruct(ctx, req); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), u.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
	}
	if err := u.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// CheckPassword reports whether password matches the stored hash.
func (u *Users) CheckPassword(user *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

func (u *Users) Watchlist(ctx context.Context, username string) ([]string, error) {
	user, err := u.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return []string(user.Watchlist), nil
}

// AddToWatchlist appends an existing ticker. Adding a ticker twice is a no-op.
func (u *Users) AddToWatchlist(ctx context.Context, username, ticker string) ([]string, error) {
	user, err := u.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	inst, err := u.instruments.GetByTicker(ctx, xutil.NormalizeTicker(ticker))
	if err != nil {
		return nil, err
	}
	list := []string(user.Watchlist)
	if slices.Contains(list, inst.Ticker) {
		return list, nil
	}
	list = append(list, inst.Ticker)
	if err := u.users.UpdateWatchlist(ctx, user.ID, list); err != nil {
		return nil, err
	}
	return list, nil
}

func (u *Users) RemoveFromWatchlist(ctx context.Context, username, ticker string) ([]string, error) {
	user, err := u.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	ticker = xutil.NormalizeTicker(ticker)
	list := slices.DeleteFunc(slices.Clone([]string(user.Watchlist)), func(t string) bool { return t == ticker })
	if len(list) == len(user.Watchlist) {
		return list, nil
	}
	if err := u.users.UpdateWatchlist(ctx, user.ID, list); err != nil {
		return nil, err
	}
	return list, nil
}
