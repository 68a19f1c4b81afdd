package service

import (
	"context"
	"errors"

	"github.com/georgesalomon/umarket2/internal/logger"
	"github.com/georgesalomon/umarket2/internal/market"
	"github.com/georgesalomon/umarket2/internal/store"
)

const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
)

// claimAttempts bounds how often a lost stock claim is re-read and retried.
const claimAttempts = 3

type CreateOrderInput struct {
	ListingID     market.ID `json:"listing_id" validate:"required"`
	PaymentMethod *string   `json:"payment_method" validate:"omitempty,max=64"`
}

type UpdateOrderInput struct {
	PaymentMethod *string        `json:"payment_method" validate:"omitempty,max=64"`
	Status        *market.Status `json:"status"`
}

// ListOrders returns the caller's purchases, or with role seller the orders
// placed against the caller's listings. An empty role means buyer.
func (s *Service) ListOrders(ctx context.Context, caller, role string) ([]market.Order, error) {
	f := store.Filters{}
	switch role {
	case "", RoleBuyer:
		f[market.FieldBuyerID] = caller
	case RoleSeller:
		f[market.EmbedAlias+"."+market.FieldSellerID] = caller
	default:
		return nil, market.ErrInvalidRole
	}
	return s.Repo.ListOrders(ctx, f)
}

// CreateOrder places a pending order for one unit of a listing. A repeated
// idempotency key from the same buyer returns the original order with
// replayed set.
func (s *Service) CreateOrder(ctx context.Context, caller string, in CreateOrderInput, idemKey string) (order market.Order, replayed bool, err error) {
	log := logger.FromContext(ctx)
	if err := check(in, market.ErrValidation); err != nil {
		return nil, false, err
	}

	if idemKey != "" && s.Idempotency != nil {
		if o, ok := s.replay(ctx, caller, idemKey); ok {
			return o, true, nil
		}
	}

	before, claimed, err := s.claim(ctx, caller, in.ListingID.String())
	if err != nil {
		return nil, false, err
	}

	order, err = s.Repo.CreateOrder(ctx, s.Repo.Schema.OrderRow(before, caller, in.PaymentMethod))
	if err != nil {
		if rerr := s.Repo.ReleaseStock(context.WithoutCancel(ctx), claimed, before); rerr != nil {
			log.Error("stock release after failed order failed",
				"listing_id", before.ID(), "error", rerr)
		}
		return nil, false, err
	}
	if order.SellerID() == "" {
		order[market.FieldSellerID] = before.SellerID()
	}
	if order.Product() == nil {
		order[market.EmbedAlias] = claimed
	}

	log.Info("order created", "order_id", order.ID(), "listing_id", before.ID(), "buyer_id", caller)

	if idemKey != "" && s.Idempotency != nil {
		if err := s.Idempotency.Remember(ctx, caller, idemKey, order.ID()); err != nil {
			log.Warn("idempotency key not recorded", "order_id", order.ID(), "error", err)
		}
	}

	amount, _ := before.PriceCents()
	var method string
	if in.PaymentMethod != nil {
		method = *in.PaymentMethod
	}
	s.emit(ctx, market.TopicOrderCreated, market.EventOrderCreated, order.ID(), market.OrderCreatedPayload{
		OrderID:       order.ID(),
		ListingID:     before.ID(),
		ListingName:   before.Name(),
		BuyerID:       caller,
		SellerID:      before.SellerID(),
		AmountCents:   amount,
		PaymentMethod: method,
	})
	return order, false, nil
}

func (s *Service) replay(ctx context.Context, caller, key string) (market.Order, bool) {
	log := logger.FromContext(ctx)
	id, ok, err := s.Idempotency.Lookup(ctx, caller, key)
	if err != nil {
		log.Warn("idempotency lookup failed", "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	o, err := s.Repo.GetOrder(ctx, id)
	if err != nil || o == nil {
		log.Warn("idempotent order could not be loaded", "order_id", id, "error", err)
		return nil, false
	}
	return o, true
}

// claim reads the listing, checks it can be bought by caller and takes one
// unit of stock. A claim lost to a concurrent buyer is re-read and checked
// again, so the loser sees the listing as sold or out of stock.
func (s *Service) claim(ctx context.Context, caller, listingID string) (before, claimed market.Listing, err error) {
	for attempt := 1; attempt <= claimAttempts; attempt++ {
		before, err = s.GetListing(ctx, listingID)
		if err != nil {
			return nil, nil, err
		}
		if err := purchasable(before, caller); err != nil {
			return nil, nil, err
		}
		claimed, err = s.Repo.ClaimStock(ctx, before)
		if errors.Is(err, store.ErrConflict) {
			logger.FromContext(ctx).Debug("stock claim lost, retrying",
				"listing_id", listingID, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		return before, claimed, nil
	}
	return nil, nil, store.ErrConflict
}

func purchasable(l market.Listing, caller string) error {
	if l.SellerID() == caller {
		return market.ErrOwnListing
	}
	if l.Sold() {
		return market.ErrAlreadySold
	}
	if qty, ok := l.Quantity(); ok && qty <= 0 {
		return market.ErrOutOfStock
	}
	return nil
}

// UpdateOrder changes the payment method (buyer or seller) or moves the
// status along its state machine (seller only). An update with no
// recognized fields returns the order untouched.
func (s *Service) UpdateOrder(ctx context.Context, caller, id string, in UpdateOrderInput) (market.Order, error) {
	order, err := s.Repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, market.ErrOrderNotFound
	}
	seller, err := s.sellerOf(ctx, order)
	if err != nil {
		return nil, err
	}
	isSeller := seller == caller
	if !isSeller && order.BuyerID() != caller {
		return nil, market.ErrNotParticipant
	}

	from := order.Status()
	if in.Status != nil && *in.Status == from {
		in.Status = nil
	}
	p := market.OrderPatch{PaymentMethod: in.PaymentMethod, Status: in.Status}
	if p.Empty() {
		return order, nil
	}
	if err := check(in, market.ErrValidation); err != nil {
		return nil, err
	}
	if p.Status != nil {
		if !isSeller {
			return nil, market.ErrSellerOnly
		}
		if !p.Status.Valid() {
			return nil, market.NewValidationError(market.FieldStatus, "status must be one of: pending, accepted, declined", market.ErrValidation)
		}
		if !market.CanTransition(from, *p.Status) {
			return nil, market.NewValidationError(market.FieldStatus, "cannot move order from "+string(from)+" to "+string(*p.Status), market.ErrValidation)
		}
	}

	updated, err := s.Repo.UpdateOrder(ctx, id, s.Repo.Schema.OrderPatchRow(p))
	if errors.Is(err, store.ErrNotFound) {
		return nil, market.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if updated.SellerID() == "" {
		updated[market.FieldSellerID] = seller
	}

	if p.Status != nil {
		logger.FromContext(ctx).Info("order status changed",
			"order_id", id, "from", from, "to", *p.Status)
		s.emit(ctx, market.TopicOrderStatusChanged, market.EventOrderStatusChanged, updated.ID(), market.OrderStatusChangedPayload{
			OrderID:   updated.ID(),
			ListingID: updated.ListingID(),
			BuyerID:   updated.BuyerID(),
			SellerID:  seller,
			From:      from,
			To:        *p.Status,
		})
	}
	return updated, nil
}

// sellerOf resolves the seller through the embedded listing, falling back
// to a direct read.
func (s *Service) sellerOf(ctx context.Context, o market.Order) (string, error) {
	if p := o.Product(); p != nil && p.SellerID() != "" {
		return p.SellerID(), nil
	}
	if o.ListingID() == "" {
		return "", market.ErrListingNotFound
	}
	l, err := s.GetListing(ctx, o.ListingID())
	if err != nil {
		return "", err
	}
	return l.SellerID(), nil
}

func (s *Service) emit(ctx context.Context, topic, eventType, orderID string, payload any) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Emit(ctx, topic, eventType, orderID, payload); err != nil {
		logger.FromContext(ctx).Error("event not published",
			"event_type", eventType, "order_id", orderID, "error", err)
	}
}
