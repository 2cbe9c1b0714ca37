package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	campaignsKey = "campaigns"
	settingsKey  = "settings"
)

var ErrCampaignNotFound = errors.New("campaign not found")

// CampaignStore persists campaigns and settings in redis. The campaign list
// lives under a single key as a JSON map, so every mutation is a
// read-modify-write; SetResult and the other writers run under WATCH to keep
// concurrent updates from clobbering each other.
type CampaignStore struct {
	rdb *redis.Client
}

func NewCampaignStore(rdb *redis.Client) *CampaignStore {
	return &CampaignStore{rdb: rdb}
}

func (s *CampaignStore) Campaigns(ctx context.Context) (map[string]*Campaign, error) {
	raw, err := s.rdb.Get(ctx, campaignsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return map[string]*Campaign{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading campaigns: %w", err)
	}

	var campaigns map[string]*Campaign
	if err := json.Unmarshal(raw, &campaigns); err != nil {
		return nil, fmt.Errorf("decoding campaigns: %w", err)
	}
	if campaigns == nil {
		campaigns = map[string]*Campaign{}
	}
	return campaigns, nil
}

func (s *CampaignStore) Campaign(ctx context.Context, id string) (*Campaign, error) {
	campaigns, err := s.Campaigns(ctx)
	if err != nil {
		return nil, err
	}
	c, ok := campaigns[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCampaignNotFound, id)
	}
	return c, nil
}

// SaveCampaign inserts or replaces one campaign.
func (s *CampaignStore) SaveCampaign(ctx context.Context, c *Campaign) error {
	return s.update(ctx, func(campaigns map[string]*Campaign) error {
		campaigns[c.ID] = c
		return nil
	})
}

func (s *CampaignStore) DeleteCampaign(ctx context.Context, id string) error {
	return s.update(ctx, func(campaigns map[string]*Campaign) error {
		if _, ok := campaigns[id]; !ok {
			return fmt.Errorf("%w: %s", ErrCampaignNotFound, id)
		}
		delete(campaigns, id)
		return nil
	})
}

// SetResult records an execution outcome and the campaign's terminal status
// in a single atomic update.
func (s *CampaignStore) SetResult(ctx context.Context, id string, result *ExecutionResult, status string) error {
	return s.update(ctx, func(campaigns map[string]*Campaign) error {
		c, ok := campaigns[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrCampaignNotFound, id)
		}
		c.Result = result
		c.Status = status
		return nil
	})
}

func (s *CampaignStore) SetStatus(ctx context.Context, id, status string) error {
	return s.update(ctx, func(campaigns map[string]*Campaign) error {
		c, ok := campaigns[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrCampaignNotFound, id)
		}
		c.Status = status
		return nil
	})
}

// update runs one read-modify-write against the campaign list under WATCH,
// retrying when a concurrent writer races the transaction.
func (s *CampaignStore) update(ctx context.Context, mutate func(map[string]*Campaign) error) error {
	const maxRetries = 10

	txn := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, campaignsKey).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("loading campaigns: %w", err)
		}

		campaigns := map[string]*Campaign{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &campaigns); err != nil {
				return fmt.Errorf("decoding campaigns: %w", err)
			}
		}

		if err := mutate(campaigns); err != nil {
			return err
		}

		encoded, err := json.Marshal(campaigns)
		if err != nil {
			return fmt.Errorf("encoding campaigns: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, campaignsKey, encoded, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxRetries; i++ {
		err := s.rdb.Watch(ctx, txn, campaignsKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return errors.New("campaign update: too many conflicting writers")
}

func (s *CampaignStore) Settings(ctx context.Context) (Settings, error) {
	raw, err := s.rdb.Get(ctx, settingsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("loading settings: %w", err)
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(raw, &settings); err != nil {
		return Settings{}, fmt.Errorf("decoding settings: %w", err)
	}
	return settings, nil
}

func (s *CampaignStore) SaveSettings(ctx context.Context, settings Settings) error {
	encoded, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := s.rdb.Set(ctx, settingsKey, encoded, 0).Err(); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}

// SetAutoExtend flips the cart auto-extension flag without touching the
// rest of the settings.
func (s *CampaignStore) SetAutoExtend(ctx context.Context, enabled bool) error {
	settings, err := s.Settings(ctx)
	if err != nil {
		return err
	}
	settings.AutoExtendCart = enabled
	return s.SaveSettings(ctx, settings)
}
