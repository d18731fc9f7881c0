package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"restock/internal/core/actor"
	"restock/internal/core/id"
	"restock/internal/domain/ledger"
	"restock/internal/infrastructure/http/v1/middleware"
)

// stockTestRouter wires the stock handler behind the error middleware
// with a fixed actor, so validation responses can be asserted end to
// end without a database.
func stockTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.Use(func(c *gin.Context) {
		ctx := actor.WithActor(c.Request.Context(), &actor.Context{
			UserID:     id.New(),
			BusinessID: id.New(),
			Role:       actor.RoleManager,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	h := NewStockHandler(NewBaseHandler(), ledger.NewService(nil, nil, nil), nil)
	h.RegisterRoutes(r.Group("/stock"))
	return r
}

func TestApplyMovement_MalformedBranchID(t *testing.T) {
	r := stockTestRouter()

	body := `{"branchId":"not-a-uuid","itemId":"` + id.New().String() + `","quantityDelta":1,"transactionType":"manual_add"}`
	req := httptest.NewRequest(http.MethodPost, "/stock/movements", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "branchId must be a valid UUID") {
		t.Errorf("expected field-level message, got %s", w.Body.String())
	}
}

func TestSetThresholds_MalformedItemID(t *testing.T) {
	r := stockTestRouter()

	body := `{"branchId":"` + id.New().String() + `","itemId":"also-not-a-uuid","minThreshold":1}`
	req := httptest.NewRequest(http.MethodPut, "/stock/thresholds", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "itemId must be a valid UUID") {
		t.Errorf("expected field-level message, got %s", w.Body.String())
	}
}
