package integration

import (
	"net/http"
	"testing"
	"time"
)

func TestInvestmentFlow_ActivateEndRenew(t *testing.T) {
	app := setupApp(t)
	token, _ := app.registerInvestor(t, "lifecycle@test.com", "password123")

	// Step 1: Activate a premium/elite plan with 100000.
	investor := app.activatePlan(t, token, "premium", "elite", 100000)
	if investor["account_number"] == "" {
		t.Fatal("expected account number on activation response")
	}

	// Step 2: Dashboard shows the anchored schedule and weekly interest.
	rec := app.request("GET", "/api/v1/dashboard", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	dash := result["investor"].(map[string]interface{})
	if dash["portfolio_type"] != "premium" {
		t.Errorf("expected portfolio premium, got %v", dash["portfolio_type"])
	}
	// 100000 at 5% per week.
	if result["weekly_interest"] != "5000" {
		t.Errorf("expected weekly interest 5000, got %v", result["weekly_interest"])
	}
	start, err := time.Parse(time.RFC3339, dash["investment_start_date"].(string))
	if err != nil {
		t.Fatalf("failed to parse start date: %v", err)
	}
	next, err := time.Parse(time.RFC3339, dash["next_due_date"].(string))
	if err != nil {
		t.Fatalf("failed to parse next due date: %v", err)
	}
	if !next.Equal(start.AddDate(0, 0, 7)) {
		t.Errorf("expected next due date one week after start, got start=%v next=%v", start, next)
	}

	// Step 3: The initial deposit shows up in the transaction history.
	rec = app.request("GET", "/api/v1/transactions?type=initial", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	history := parseJSON(t, rec)
	if history["total_items"].(float64) != 1 {
		t.Fatalf("expected one initial transaction, got %v", history["total_items"])
	}
	initialTx := history["data"].([]interface{})[0].(map[string]interface{})
	if initialTx["amount"] != "100000" {
		t.Errorf("expected initial amount 100000, got %v", initialTx["amount"])
	}

	// Step 4: A second activation while one is active is rejected.
	rec = app.request("POST", "/api/v1/investment/activate",
		`{"portfolio_type":"standard","investment_type":"starter","amount":50000}`, token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for second activation, got %d: %s", rec.Code, rec.Body.String())
	}

	// Step 5: End the investment. 25% of 100000 is forfeited, 75000 credited.
	rec = app.request("POST", "/api/v1/investment/end", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 ending investment, got %d: %s", rec.Code, rec.Body.String())
	}
	endTx := parseJSON(t, rec)["transaction"].(map[string]interface{})
	if endTx["transaction_type"] != "end_investment" {
		t.Errorf("expected end_investment transaction, got %v", endTx["transaction_type"])
	}
	if endTx["forfeiture_amount"] != "25000" {
		t.Errorf("expected forfeiture 25000, got %v", endTx["forfeiture_amount"])
	}

	rec = app.request("GET", "/api/v1/dashboard", "", token)
	result = parseJSON(t, rec)
	if result["spending_balance"] != "75000" {
		t.Errorf("expected spending balance 75000 after end, got %v", result["spending_balance"])
	}

	// Step 6: Ending twice is rejected.
	rec = app.request("POST", "/api/v1/investment/end", "", token)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 ending twice, got %d: %s", rec.Code, rec.Body.String())
	}
	if code := errorCode(t, rec); code != "INVESTMENT_ENDED" {
		t.Errorf("expected INVESTMENT_ENDED, got %v", code)
	}

	// Step 7: Renew for a new cycle. 20% fee on the 100000 principal.
	rec = app.request("POST", "/api/v1/investment/renew", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 renewing, got %d: %s", rec.Code, rec.Body.String())
	}
	renewTx := parseJSON(t, rec)["transaction"].(map[string]interface{})
	if renewTx["service_fee"] != "20000" {
		t.Errorf("expected service fee 20000, got %v", renewTx["service_fee"])
	}
	if renewTx["amount"] != "80000" {
		t.Errorf("expected new principal 80000, got %v", renewTx["amount"])
	}

	// Step 8: After renewal the schedule is cleared and a new plan can start.
	rec = app.request("GET", "/api/v1/dashboard", "", token)
	result = parseJSON(t, rec)
	dash = result["investor"].(map[string]interface{})
	if dash["investment_type"] != nil {
		t.Errorf("expected cleared investment type after renew, got %v", dash["investment_type"])
	}
	if dash["next_due_date"] != nil {
		t.Errorf("expected cleared next due date after renew, got %v", dash["next_due_date"])
	}
	app.activatePlan(t, token, "standard", "growth", 80000)
}

func TestInvestmentFlow_DeleteOwnTransaction(t *testing.T) {
	app := setupApp(t)
	token, _ := app.registerInvestor(t, "delete@test.com", "password123")
	app.activatePlan(t, token, "premium", "elite", 100000)

	rec := app.request("GET", "/api/v1/transactions?type=initial", "", token)
	reference := parseJSON(t, rec)["data"].([]interface{})[0].(map[string]interface{})["reference"].(string)

	// Another investor cannot delete it.
	otherToken, _ := app.registerInvestor(t, "other@test.com", "password123")
	rec = app.request("DELETE", "/api/v1/transactions/"+reference, "", otherToken)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 deleting someone else's transaction, got %d: %s", rec.Code, rec.Body.String())
	}

	// The owner can, and it disappears from the history.
	rec = app.request("DELETE", "/api/v1/transactions/"+reference, "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 deleting own transaction, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = app.request("GET", "/api/v1/transactions?type=initial", "", token)
	if total := parseJSON(t, rec)["total_items"].(float64); total != 0 {
		t.Errorf("expected empty history after delete, got %v", total)
	}
}

func TestInvestmentFlow_ActivateUnknownPlan(t *testing.T) {
	app := setupApp(t)
	token, _ := app.registerInvestor(t, "plans@test.com", "password123")

	// gold/starter passes field validation but is not in the plan table.
	rec := app.request("POST", "/api/v1/investment/activate",
		`{"portfolio_type":"gold","investment_type":"starter","amount":100000}`, token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown plan, got %d: %s", rec.Code, rec.Body.String())
	}
	if code := errorCode(t, rec); code != "UNKNOWN_PLAN" {
		t.Errorf("expected UNKNOWN_PLAN, got %v", code)
	}
}

func TestInvestmentFlow_EndWithoutActivePlan(t *testing.T) {
	app := setupApp(t)
	token, _ := app.registerInvestor(t, "noplan@test.com", "password123")

	rec := app.request("POST", "/api/v1/investment/end", "", token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 ending without a plan, got %d: %s", rec.Code, rec.Body.String())
	}
	if code := errorCode(t, rec); code != "NO_ACTIVE_INVESTMENT" {
		t.Errorf("expected NO_ACTIVE_INVESTMENT, got %v", code)
	}
}
