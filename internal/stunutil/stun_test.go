package stunutil

import (
	"context"
	"testing"
	"time"
)

func TestPublicAddr_NoServers(t *testing.T) {
	t.Parallel()

	if _, err := PublicAddr(context.Background(), nil, time.Second); err == nil {
		t.Fatal("expected error with no servers")
	}
}

func TestPublicAddr_EmptyServer(t *testing.T) {
	t.Parallel()

	if _, err := PublicAddr(context.Background(), []string{"  "}, time.Second); err == nil {
		t.Fatal("expected error for blank server entry")
	}
}
