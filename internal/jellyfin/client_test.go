package jellyfin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"jellyfin-bot/internal/common"
)

// ── Тестовый сервер ──

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, NewClient(srv.URL, "test-key", 2*time.Second)
}

// ── ListUsers / LookupUserID ──

func TestClient_LookupUserID_Found(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Users" {
			t.Errorf("неожиданный путь: %s", r.URL.Path)
		}
		if r.Header.Get("X-Emby-Token") != "test-key" {
			t.Errorf("нет заголовка X-Emby-Token")
		}
		json.NewEncoder(w).Encode([]User{
			{Name: "alice", ID: "id-alice"},
			{Name: "bob", ID: "id-bob"},
		})
	})

	id, err := client.LookupUserID(context.Background(), "bob")
	if err != nil {
		t.Fatalf("LookupUserID должен пройти: %v", err)
	}
	if id != "id-bob" {
		t.Errorf("ожидался id-bob, получен %s", id)
	}
}

func TestClient_LookupUserID_NotFound(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]User{{Name: "alice", ID: "id-alice"}})
	})

	_, err := client.LookupUserID(context.Background(), "ghost")
	if !errors.Is(err, common.ErrRemoteUserNotFound) {
		t.Errorf("ожидался ErrRemoteUserNotFound, получено: %v", err)
	}
}

func TestClient_ListUsers_ServerError(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.ListUsers(context.Background())
	if !errors.Is(err, common.ErrRemoteUnavailable) {
		t.Errorf("ожидался ErrRemoteUnavailable, получено: %v", err)
	}
}

// ── CreateUser ──

func TestClient_CreateUser_SendsPolicy(t *testing.T) {
	var got createUserRequest
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/Users/New" {
			t.Errorf("неожиданный запрос: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("некорректное тело: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	})

	if err := client.CreateUser(context.Background(), "alice", "secret123"); err != nil {
		t.Fatalf("CreateUser должен пройти: %v", err)
	}
	if got.Name != "alice" || got.Password != "secret123" {
		t.Errorf("тело запроса не совпало: %+v", got)
	}
	if got.Policy.IsAdministrator {
		t.Error("новый пользователь не должен быть админом")
	}
	if !got.Policy.EnableAllFolders {
		t.Error("новому пользователю должны быть доступны все папки")
	}
}

func TestClient_CreateUser_Failure(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	err := client.CreateUser(context.Background(), "alice", "secret123")
	if !errors.Is(err, common.ErrRemoteUnavailable) {
		t.Errorf("ожидался ErrRemoteUnavailable, получено: %v", err)
	}
}

// ── DeleteUser ──

func TestClient_DeleteUser(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/Users/id-alice" {
			t.Errorf("неожиданный запрос: %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := client.DeleteUser(context.Background(), "id-alice"); err != nil {
		t.Fatalf("DeleteUser должен пройти: %v", err)
	}
}

// Недоступный сервер (таймаут/обрыв) должен превращаться в ErrRemoteUnavailable.
func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // закрываем сразу — порт мёртв

	client := NewClient(srv.URL, "test-key", 500*time.Millisecond)
	if err := client.DeleteUser(context.Background(), "id"); !errors.Is(err, common.ErrRemoteUnavailable) {
		t.Errorf("ожидался ErrRemoteUnavailable, получено: %v", err)
	}
}
