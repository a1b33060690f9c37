package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "vestra/internal/errors"
)

func bankListServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bank" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		resp := map[string]any{
			"status":  true,
			"message": "Banks retrieved",
			"data": []map[string]string{
				{"name": "Access Bank", "code": "044"},
				{"name": "Guaranty Trust Bank", "code": "058"},
				{"name": "Zenith Bank", "code": "057"},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestResolveBankCode_ExactMatch(t *testing.T) {
	server := bankListServer(t)
	defer server.Close()

	c := NewPaystackClient(server.Client(), server.URL, "sk_test")
	code, err := c.ResolveBankCode(context.Background(), "Zenith Bank")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != "057" {
		t.Errorf("expected code 057, got %s", code)
	}
}

func TestResolveBankCode_SubstringMatch(t *testing.T) {
	server := bankListServer(t)
	defer server.Close()

	c := NewPaystackClient(server.Client(), server.URL, "sk_test")
	code, err := c.ResolveBankCode(context.Background(), "guaranty trust")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != "058" {
		t.Errorf("expected code 058, got %s", code)
	}
}

func TestResolveBankCode_NotFound(t *testing.T) {
	server := bankListServer(t)
	defer server.Close()

	c := NewPaystackClient(server.Client(), server.URL, "sk_test")
	_, err := c.ResolveBankCode(context.Background(), "No Such Bank")

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != "BANK_NOT_RESOLVED" {
		t.Errorf("expected BANK_NOT_RESOLVED, got %v", err)
	}
}

func TestCreateRecipient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transferrecipient" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["type"] != "nuban" || body["account_number"] != "0123456789" {
			t.Errorf("unexpected payload: %v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data":   map[string]string{"recipient_code": "RCP_abc123"},
		})
	}))
	defer server.Close()

	c := NewPaystackClient(server.Client(), server.URL, "sk_test")
	code, err := c.CreateRecipient(context.Background(), "Ada Obi", "0123456789", "058")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != "RCP_abc123" {
		t.Errorf("expected RCP_abc123, got %s", code)
	}
}

func TestInitiateTransfer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["amount"].(float64) != 500000 {
			t.Errorf("expected amount 500000, got %v", body["amount"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"data":   map[string]string{"transfer_code": "TRF_xyz789"},
		})
	}))
	defer server.Close()

	c := NewPaystackClient(server.Client(), server.URL, "sk_test")
	ref, err := c.InitiateTransfer(context.Background(), 500000, "RCP_abc123", "Withdrawal", "TRF-LOCAL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ref != "TRF_xyz789" {
		t.Errorf("expected TRF_xyz789, got %s", ref)
	}
}

func TestGatewayDecline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  false,
			"message": "Insufficient gateway balance",
		})
	}))
	defer server.Close()

	c := NewPaystackClient(server.Client(), server.URL, "sk_test")
	_, err := c.InitiateTransfer(context.Background(), 1000, "RCP_x", "Withdrawal", "TRF-1")

	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != "GATEWAY_FAILURE" {
		t.Errorf("expected GATEWAY_FAILURE, got %v", err)
	}
}
