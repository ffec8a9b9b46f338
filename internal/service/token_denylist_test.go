package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type mockRedisKVClient struct {
	lastSetKey string
	lastSetVal interface{}
	lastSetTTL time.Duration
	lastExists []string

	setErr    error
	existsErr error
	existsN   int64
}

func (m *mockRedisKVClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	m.lastSetKey = key
	m.lastSetVal = value
	m.lastSetTTL = expiration
	cmd := redis.NewStatusCmd(ctx)
	if m.setErr != nil {
		cmd.SetErr(m.setErr)
		return cmd
	}
	cmd.SetVal("OK")
	return cmd
}

func (m *mockRedisKVClient) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	m.lastExists = keys
	cmd := redis.NewIntCmd(ctx)
	if m.existsErr != nil {
		cmd.SetErr(m.existsErr)
		return cmd
	}
	cmd.SetVal(m.existsN)
	return cmd
}

func TestMemoryTokenDenylist_Expires(t *testing.T) {
	denylist := NewMemoryTokenDenylist()

	ok, err := denylist.IsRevoked("missing")
	if err != nil || ok {
		t.Fatalf("expected missing jti false,nil; got %v,%v", ok, err)
	}

	if err := denylist.Revoke("jti-1", 50*time.Millisecond); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	ok, err = denylist.IsRevoked("jti-1")
	if err != nil || !ok {
		t.Fatalf("expected jti revoked, got %v,%v", ok, err)
	}

	time.Sleep(70 * time.Millisecond)
	ok, err = denylist.IsRevoked("jti-1")
	if err != nil || ok {
		t.Fatalf("expected entry to lapse with the token, got %v,%v", ok, err)
	}
}

func TestMemoryTokenDenylist_IgnoresEmptyAndElapsed(t *testing.T) {
	denylist := NewMemoryTokenDenylist()
	if err := denylist.Revoke("", time.Minute); err != nil {
		t.Fatalf("empty jti should be no-op, got %v", err)
	}
	if err := denylist.Revoke("jti-2", -time.Second); err != nil {
		t.Fatalf("elapsed ttl should be no-op, got %v", err)
	}
	if ok, _ := denylist.IsRevoked("jti-2"); ok {
		t.Fatalf("expected elapsed ttl not to be stored")
	}
}

func TestRedisTokenDenylist(t *testing.T) {
	mock := &mockRedisKVClient{existsN: 1}
	denylist := &redisTokenDenylist{client: mock, prefix: "auth:revoked:"}

	if err := denylist.Revoke("jti-1", time.Hour); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if mock.lastSetKey != "auth:revoked:jti-1" || mock.lastSetTTL != time.Hour {
		t.Fatalf("unexpected set call: key=%q ttl=%v", mock.lastSetKey, mock.lastSetTTL)
	}

	ok, err := denylist.IsRevoked("jti-1")
	if err != nil || !ok {
		t.Fatalf("expected revoked, got %v,%v", ok, err)
	}
	if len(mock.lastExists) != 1 || mock.lastExists[0] != "auth:revoked:jti-1" {
		t.Fatalf("unexpected exists keys: %+v", mock.lastExists)
	}

	mock.existsErr = errors.New("redis down")
	if _, err := denylist.IsRevoked("jti-1"); err == nil {
		t.Fatalf("expected redis error to surface")
	}
}

func TestJWTService_DenylistErrorFailsOpen(t *testing.T) {
	mock := &mockRedisKVClient{existsErr: errors.New("redis down")}
	svc := NewJWTServiceWithDenylist("secret", time.Hour, &redisTokenDenylist{client: mock, prefix: "auth:revoked:"})
	session, err := svc.Issue("u1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.Parse(session.Token); err != nil {
		t.Fatalf("expected token accepted while denylist is unavailable, got %v", err)
	}
}
