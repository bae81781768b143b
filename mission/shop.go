package mission

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/task-economy/generic"
	"github.com/warp/task-economy/rewards"
)

func (s *Service) AddReward(ctx context.Context, entityID generic.EntityID, name string, cost decimal.Decimal) (rewards.Reward, error) {
	r, err := rewards.NewReward(name, cost)
	if err != nil {
		return rewards.Reward{}, err
	}
	_, err = s.update(ctx, entityID, func(w *work) error {
		w.state.Rewards = append(w.state.Rewards, r)
		w.state.touch(SectionRewardCatalog)
		return nil
	})
	if err != nil {
		return rewards.Reward{}, err
	}
	return r, nil
}

// DeleteReward removes a catalog entry. Past purchases keep their copy.
func (s *Service) DeleteReward(ctx context.Context, entityID generic.EntityID, id string) error {
	_, err := s.update(ctx, entityID, func(w *work) error {
		rest, ok := w.state.Rewards.Without(id)
		if !ok {
			return fmt.Errorf("reward %s: %w", id, ErrRewardNotFound)
		}
		w.state.Rewards = rest
		w.state.touch(SectionRewardCatalog)
		return nil
	})
	return err
}

// PurchaseReward buys a catalog entry if the balance covers its cost.
func (s *Service) PurchaseReward(ctx context.Context, entityID generic.EntityID, id string) (rewards.Purchase, error) {
	var out rewards.Purchase
	_, err := s.update(ctx, entityID, func(w *work) error {
		r, ok := w.state.Rewards.Find(id)
		if !ok {
			return fmt.Errorf("reward %s: %w", id, ErrRewardNotFound)
		}
		p, tx, err := rewards.Buy(w.state.EntityID, r, w.balance(), w.today)
		if err != nil {
			return err
		}
		w.state.Purchases = append(w.state.Purchases, p)
		w.state.touch(SectionPurchases)
		w.pending = append(w.pending, tx)
		out = p
		return nil
	})
	return out, err
}
