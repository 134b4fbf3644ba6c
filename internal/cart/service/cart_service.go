package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/silkloom/store/internal/cart/cache"
	"github.com/silkloom/store/internal/cart/repository"
	"github.com/silkloom/store/internal/domain"
)

type CartService struct {
	repo  repository.CartRepository
	cache cache.CartCache
	sfg   singleflight.Group // Prevents cache stampede
}

func NewCartService(repo repository.CartRepository, cache cache.CartCache) *CartService {
	return &CartService{
		repo:  repo,
		cache: cache,
	}
}

// GetCart returns the session's cart, or an empty cart when nothing has
// been added yet.
func (s *CartService) GetCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	// Use singleflight to prevent multiple concurrent cache misses for same key
	v, err, _ := s.sfg.Do(sessionID, func() (interface{}, error) {

		cart, err := s.cache.Get(ctx, sessionID)
		if err == nil {
			return cart, nil // cart is in cache
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Warn().Err(err).Msg("cart cache get error") // log cache error but continue
		}

		cart, errGet := s.repo.GetCart(ctx, sessionID)
		if errGet != nil && errors.Is(errGet, repository.ErrCartNotFound) {
			return &domain.Cart{
				SessionID: sessionID,
				Lines:     nil,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}, nil
		}
		if errGet != nil {
			return nil, errGet
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), sessionID, cart); errSet != nil {
				log.Warn().Err(errSet).Msg("cart cache set error")
			}
		}()

		return cart, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// AddLine adds one unit of a product to the cart. Repeat adds for the same
// item key only increment the quantity; the stored price is untouched.
func (s *CartService) AddLine(ctx context.Context, sessionID string, line domain.CartLine) error {
	if err := s.repo.AddLine(ctx, sessionID, line); err != nil {
		log.Error().Err(err).Str("item", line.ItemKey).Msg("repo add line error")
		return err
	}

	s.invalidateCache(sessionID)
	return nil
}

func (s *CartService) RemoveLine(ctx context.Context, sessionID, itemKey string) error {
	if err := s.repo.RemoveLine(ctx, sessionID, itemKey); err != nil {
		if !errors.Is(err, repository.ErrLineNotFound) {
			log.Error().Err(err).Str("item", itemKey).Msg("repo remove line error")
		}
		return err
	}

	s.invalidateCache(sessionID)
	return nil
}

// ClearCart destroys the session's cart. Called exactly once per checkout,
// only after the order row is durable.
func (s *CartService) ClearCart(ctx context.Context, sessionID string) error {
	if err := s.repo.DeleteCart(ctx, sessionID); err != nil {
		log.Error().Err(err).Msg("repo delete cart error")
		return err
	}

	s.invalidateCache(sessionID)
	return nil
}

func (s *CartService) invalidateCache(sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, sessionID); err != nil {
		log.Warn().Err(err).Msg("cart cache invalidate error")
	}
}
