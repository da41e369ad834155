package commands_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dejobratic/storefront/internal/orders/adapters/memory"
	"github.com/dejobratic/storefront/internal/orders/app/commands"
	"github.com/dejobratic/storefront/internal/orders/domain"
)

type failingCreateRepository struct {
	*memory.Repository
	err error
}

func (r *failingCreateRepository) Create(ctx context.Context, order domain.Order, entry domain.HistoryEntry) error {
	return r.err
}

type mockEventBus struct {
	publishOrderCreatedFn       func(ctx context.Context, order domain.Order) error
	publishOrderStatusChangedFn func(ctx context.Context, order domain.Order, previous domain.OrderStatus, reason string) error
	publishOrderRefundedFn      func(ctx context.Context, order domain.Order, amountCents int64, reason string) error
}

func (m *mockEventBus) PublishOrderCreated(ctx context.Context, order domain.Order) error {
	if m.publishOrderCreatedFn != nil {
		return m.publishOrderCreatedFn(ctx, order)
	}
	return nil
}

func (m *mockEventBus) PublishOrderStatusChanged(ctx context.Context, order domain.Order, previous domain.OrderStatus, reason string) error {
	if m.publishOrderStatusChangedFn != nil {
		return m.publishOrderStatusChangedFn(ctx, order, previous, reason)
	}
	return nil
}

func (m *mockEventBus) PublishOrderRefunded(ctx context.Context, order domain.Order, amountCents int64, reason string) error {
	if m.publishOrderRefundedFn != nil {
		return m.publishOrderRefundedFn(ctx, order, amountCents, reason)
	}
	return nil
}

func address() domain.Address {
	return domain.Address{
		FirstName: "Grace",
		LastName:  "Hopper",
		Email:     "grace@example.com",
		Address:   "1 Navy Way",
		City:      "Arlington",
		State:     "VA",
		ZipCode:   "22202",
		Country:   "US",
	}
}

func validCreateCommand() commands.CreateOrderCommand {
	return commands.CreateOrderCommand{
		UserID: "user-1",
		Items: []domain.OrderItem{
			{ProductID: "p-1", ProductName: "Notebook", Quantity: 2, UnitPriceCents: 1500},
			{ProductID: "p-2", ProductName: "Pen", Quantity: 3, UnitPriceCents: 250},
		},
		ShippingAddress:     address(),
		BillingAddress:      address(),
		ShippingAmountCents: 500,
		TaxAmountCents:      300,
		DiscountAmountCents: 100,
	}
}

func TestCreateOrder(t *testing.T) {
	t.Run("creates pending order with computed totals", func(t *testing.T) {
		repo := memory.NewRepository()
		handler := commands.NewCreateOrderCommandHandler(repo, &mockEventBus{})

		order, err := handler.Handle(context.Background(), validCreateCommand())
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if order.ID == "" {
			t.Error("expected order ID to be generated")
		}
		if order.Status != domain.StatusPending {
			t.Errorf("expected status %s, got %s", domain.StatusPending, order.Status)
		}
		if order.PaymentStatus != domain.PaymentPending {
			t.Errorf("expected payment status %s, got %s", domain.PaymentPending, order.PaymentStatus)
		}
		if order.SubtotalCents != 3750 {
			t.Errorf("expected subtotal 3750, got %d", order.SubtotalCents)
		}
		if order.TotalAmountCents != 3750+500+300-100 {
			t.Errorf("expected total %d, got %d", 3750+500+300-100, order.TotalAmountCents)
		}
		if order.Currency != domain.DefaultCurrency {
			t.Errorf("expected currency %s, got %s", domain.DefaultCurrency, order.Currency)
		}
		for _, item := range order.Items {
			if item.ID == "" {
				t.Error("expected item ID to be generated")
			}
		}

		history, err := repo.History(context.Background(), order.ID)
		if err != nil {
			t.Fatalf("expected history, got error: %v", err)
		}
		if len(history) != 1 || history[0].Notes != domain.NoteOrderCreated {
			t.Errorf("expected single %q history entry, got %+v", domain.NoteOrderCreated, history)
		}
	})

	t.Run("does not mutate caller items", func(t *testing.T) {
		handler := commands.NewCreateOrderCommandHandler(memory.NewRepository(), &mockEventBus{})
		cmd := validCreateCommand()

		if _, err := handler.Handle(context.Background(), cmd); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if cmd.Items[0].TotalPriceCents != 0 || cmd.Items[0].ID != "" {
			t.Errorf("expected command items untouched, got %+v", cmd.Items[0])
		}
	})

	t.Run("returns validation error when user is missing", func(t *testing.T) {
		handler := commands.NewCreateOrderCommandHandler(memory.NewRepository(), &mockEventBus{})
		cmd := validCreateCommand()
		cmd.UserID = ""

		order, err := handler.Handle(context.Background(), cmd)

		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected validation error, got: %v", err)
		}
		if err.Error() != "user_id: is required" {
			t.Errorf("expected error %q, got %q", "user_id: is required", err.Error())
		}
		if order != nil {
			t.Errorf("expected nil order, got %+v", order)
		}
	})

	t.Run("returns validation error when there are no items", func(t *testing.T) {
		handler := commands.NewCreateOrderCommandHandler(memory.NewRepository(), &mockEventBus{})
		cmd := validCreateCommand()
		cmd.Items = nil

		_, err := handler.Handle(context.Background(), cmd)
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected validation error, got: %v", err)
		}
	})

	t.Run("returns validation error when discount exceeds order", func(t *testing.T) {
		handler := commands.NewCreateOrderCommandHandler(memory.NewRepository(), &mockEventBus{})
		cmd := validCreateCommand()
		cmd.DiscountAmountCents = 1_000_000

		_, err := handler.Handle(context.Background(), cmd)
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected validation error, got: %v", err)
		}
	})

	t.Run("returns validation error when address is incomplete", func(t *testing.T) {
		handler := commands.NewCreateOrderCommandHandler(memory.NewRepository(), &mockEventBus{})
		cmd := validCreateCommand()
		cmd.BillingAddress.Email = ""

		_, err := handler.Handle(context.Background(), cmd)
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected validation error, got: %v", err)
		}
	})

	t.Run("returns error when repository fails", func(t *testing.T) {
		repoErr := errors.New("database connection failed")
		repo := &failingCreateRepository{Repository: memory.NewRepository(), err: repoErr}
		handler := commands.NewCreateOrderCommandHandler(repo, &mockEventBus{})

		order, err := handler.Handle(context.Background(), validCreateCommand())

		if !errors.Is(err, repoErr) {
			t.Errorf("expected error to wrap repository error, got: %v", err)
		}
		if order != nil {
			t.Errorf("expected nil order, got %+v", order)
		}
	})

	t.Run("returns order even when event publishing fails", func(t *testing.T) {
		eventErr := errors.New("kafka unavailable")
		events := &mockEventBus{
			publishOrderCreatedFn: func(ctx context.Context, order domain.Order) error {
				return eventErr
			},
		}
		handler := commands.NewCreateOrderCommandHandler(memory.NewRepository(), events)

		order, err := handler.Handle(context.Background(), validCreateCommand())

		if !errors.Is(err, eventErr) {
			t.Fatalf("expected event error, got: %v", err)
		}
		if order == nil {
			t.Fatal("expected order to be returned even on event bus error")
		}
		if order.UserID != "user-1" {
			t.Errorf("expected user user-1, got %s", order.UserID)
		}
	})
}
