package service

import (
	"errors"
	"testing"
)

func TestSubscribe(t *testing.T) {
	subs := NewMockPushSubscriptionRepository()
	notificationService := NewNotificationService(subs)

	sub, err := notificationService.Subscribe(1, "https://push.example/endpoint", `{"p256dh":"k","auth":"a"}`)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if sub.UserID != 1 {
		t.Errorf("sub.UserID = %d, want 1", sub.UserID)
	}

	// Re-subscribing replaces the stored endpoint.
	if _, err := notificationService.Subscribe(1, "https://push.example/other", `{"p256dh":"k2","auth":"a2"}`); err != nil {
		t.Fatalf("re-subscribe failed: %v", err)
	}
	stored, err := subs.FindByUser(1)
	if err != nil {
		t.Fatalf("FindByUser failed: %v", err)
	}
	if stored.Endpoint != "https://push.example/other" {
		t.Errorf("stored endpoint = %q, want the replacement", stored.Endpoint)
	}

	if _, err := notificationService.Subscribe(1, "", "{}"); !errors.Is(err, ErrValidation) {
		t.Errorf("empty endpoint error = %v, want ErrValidation", err)
	}
}

func TestGetSubscription(t *testing.T) {
	subs := NewMockPushSubscriptionRepository()
	notificationService := NewNotificationService(subs)

	if _, err := notificationService.GetSubscription(1); !errors.Is(err, ErrNotFound) {
		t.Errorf("before subscribing error = %v, want ErrNotFound", err)
	}

	if _, err := notificationService.Subscribe(1, "https://push.example/endpoint", `{"auth":"a"}`); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	sub, err := notificationService.GetSubscription(1)
	if err != nil {
		t.Fatalf("GetSubscription failed: %v", err)
	}
	if sub.Endpoint != "https://push.example/endpoint" {
		t.Errorf("endpoint = %q, want the stored one", sub.Endpoint)
	}
}

func TestUnsubscribe(t *testing.T) {
	subs := NewMockPushSubscriptionRepository()
	notificationService := NewNotificationService(subs)

	if _, err := notificationService.Subscribe(1, "https://push.example/endpoint", `{"auth":"a"}`); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := notificationService.Unsubscribe(1); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}
	if _, err := subs.FindByUser(1); err == nil {
		t.Error("subscription still stored after unsubscribe")
	}

	// Unsubscribing with nothing stored is not an error.
	if err := notificationService.Unsubscribe(99); err != nil {
		t.Errorf("unsubscribe without subscription: %v", err)
	}
}
