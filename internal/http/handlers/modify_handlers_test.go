package handlers_test

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
)

func TestModifyRequest_SendsLinkForKnownEmail(t *testing.T) {
	env := setupTestServer(t)
	env.createRSVP(t, "Nora Webb", "nora@example.com")

	token := env.requestToken(t, "nora@example.com")

	if len(token) != 64 {
		t.Fatalf("Expected 64-char token, got %d chars", len(token))
	}
	for _, c := range token {
		if !strings.ContainsRune("0123456789abcdef", c) {
			t.Fatalf("Token contains non-hex character %q", c)
		}
	}

	mails := env.mailer.sentTo("nora@example.com")
	var linkMail bool
	for _, m := range mails {
		if strings.Contains(m.text, token) {
			linkMail = true
		}
	}
	if !linkMail {
		t.Fatal("Expected magic link email containing the token")
	}
}

func TestModifyRequest_UnknownEmail_IndistinguishableResponse(t *testing.T) {
	env := setupTestServer(t)
	env.createRSVP(t, "Nora Webb", "nora@example.com")

	readBody := func(email string) string {
		resp := postJSON(t, env.server.URL+"/v1/rsvp/modify-request", map[string]string{"email": email}, http.StatusOK)
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatal(err)
		}
		return string(b)
	}

	knownBody := readBody("nora@example.com")
	unknownBody := readBody("stranger@example.com")

	if knownBody != unknownBody {
		t.Fatalf("Response bodies differ:\nknown:   %s\nunknown: %s", knownBody, unknownBody)
	}

	if got := env.mailer.sentTo("stranger@example.com"); len(got) != 0 {
		t.Fatalf("Expected no email to unknown address, got %d", len(got))
	}
	if env.tokens.lastFor("stranger@example.com") != nil {
		t.Fatal("Expected no token minted for unknown address")
	}
}

func TestModifyRequest_InvalidEmail_BadRequest(t *testing.T) {
	env := setupTestServer(t)

	tests := []struct {
		name  string
		email string
	}{
		{"empty email", ""},
		{"no at sign", "noraexample.com"},
		{"no domain", "nora@"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, env.server.URL+"/v1/rsvp/modify-request", map[string]string{"email": tt.email}, http.StatusBadRequest)
			resp.Body.Close()
		})
	}
}

func TestModifyRequest_TokenBoundToStoredAddress(t *testing.T) {
	env := setupTestServer(t)
	env.createRSVP(t, "Nora Webb", "nora@example.com")

	// Mixed-case request still binds the token to the stored address.
	resp := postJSON(t, env.server.URL+"/v1/rsvp/modify-request", map[string]string{"email": "NORA@Example.COM"}, http.StatusOK)
	resp.Body.Close()

	tok := env.tokens.lastFor("nora@example.com")
	if tok == nil {
		t.Fatal("No token issued")
	}
	if tok.Email != "nora@example.com" {
		t.Fatalf("Token bound to %q, want stored address", tok.Email)
	}
}

func TestVerifyToken_MalformedToken_BadRequest(t *testing.T) {
	env := setupTestServer(t)

	tests := []struct {
		name  string
		token string
	}{
		{"too short", "abc123"},
		{"uppercase hex", strings.ToUpper(strings.Repeat("ab", 32))},
		{"non-hex chars", strings.Repeat("zz", 32)},
		{"too long", strings.Repeat("ab", 40)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(t, env.server.URL+"/v1/rsvp/verify-token?token="+tt.token, http.StatusBadRequest)
			resp.Body.Close()
		})
	}

	resp := get(t, env.server.URL+"/v1/rsvp/verify-token", http.StatusBadRequest)
	resp.Body.Close()
}

func TestVerifyToken_UnknownUsedExpired_SameRejection(t *testing.T) {
	env := setupTestServer(t)
	env.createRSVP(t, "Nora Webb", "nora@example.com")

	readRejection := func(token string) string {
		resp := get(t, env.server.URL+"/v1/rsvp/verify-token?token="+token, http.StatusUnauthorized)
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatal(err)
		}
		return string(b)
	}

	// Unknown: well-formed but never issued.
	unknown := readRejection(strings.Repeat("ab", 32))

	// Used: issued, then redeemed.
	usedToken := env.requestToken(t, "nora@example.com")
	resp := putJSON(t, env.server.URL+"/v1/rsvp", map[string]interface{}{"token": usedToken}, http.StatusOK)
	resp.Body.Close()
	used := readRejection(usedToken)

	// Expired: issued, then aged past the TTL.
	expiredToken := env.requestToken(t, "nora@example.com")
	env.tokens.expire(expiredToken)
	expired := readRejection(expiredToken)

	if unknown != used || used != expired {
		t.Fatalf("Rejections must be identical:\nunknown: %s\nused:    %s\nexpired: %s", unknown, used, expired)
	}
}

func TestVerifyToken_Valid_ReturnsRSVPAndIsRepeatable(t *testing.T) {
	env := setupTestServer(t)
	env.createRSVP(t, "Nora Webb", "nora@example.com")
	token := env.requestToken(t, "nora@example.com")

	for i := 0; i < 3; i++ {
		resp := get(t, env.server.URL+"/v1/rsvp/verify-token?token="+token, http.StatusOK)

		var result struct {
			Valid bool `json:"valid"`
			RSVP  struct {
				GuestName  string `json:"guest_name"`
				GuestEmail string `json:"guest_email"`
			} `json:"rsvp"`
		}
		decodeBody(t, resp, &result)

		if !result.Valid {
			t.Fatal("Expected valid:true")
		}
		if result.RSVP.GuestEmail != "nora@example.com" {
			t.Fatalf("Expected RSVP for nora@example.com, got %q", result.RSVP.GuestEmail)
		}
	}
}

func TestVerifyToken_ValidTokenMissingRSVP_NotFound(t *testing.T) {
	env := setupTestServer(t)
	env.createRSVP(t, "Nora Webb", "nora@example.com")
	token := env.requestToken(t, "nora@example.com")

	env.rsvps.delete("nora@example.com")

	resp := get(t, env.server.URL+"/v1/rsvp/verify-token?token="+token, http.StatusNotFound)
	resp.Body.Close()
}

func TestUpdateRSVP_PartialUpdateRetainsOtherFields(t *testing.T) {
	env := setupTestServer(t)

	attending := true
	plusOne := true
	resp := postJSON(t, env.server.URL+"/v1/rsvp", map[string]interface{}{
		"guest_name":           "Nora Webb",
		"guest_email":          "nora@example.com",
		"attending":            attending,
		"plus_one":             plusOne,
		"plus_one_name":        "Sam Webb",
		"dietary_restrictions": "vegetarian",
	}, http.StatusCreated)
	resp.Body.Close()

	token := env.requestToken(t, "nora@example.com")

	resp = putJSON(t, env.server.URL+"/v1/rsvp", map[string]interface{}{
		"token":         token,
		"song_requests": "September",
	}, http.StatusOK)
	resp.Body.Close()

	updated, _ := env.rsvps.FindByEmail(context.Background(), "nora@example.com")
	if updated.SongRequests == nil || *updated.SongRequests != "September" {
		t.Fatal("Patched field not applied")
	}
	if updated.DietaryRestrictions == nil || *updated.DietaryRestrictions != "vegetarian" {
		t.Fatal("Absent field must retain its stored value")
	}
	if !updated.PlusOne || updated.NumberOfGuests != 2 {
		t.Fatalf("Plus-one state lost: plus_one=%v guests=%d", updated.PlusOne, updated.NumberOfGuests)
	}
}

func TestUpdateRSVP_GuestCountDerivedFromPlusOneFlag(t *testing.T) {
	env := setupTestServer(t)
	env.createRSVP(t, "Nora Webb", "nora@example.com")

	// Turn the plus-one on.
	token := env.requestToken(t, "nora@example.com")
	resp := putJSON(t, env.server.URL+"/v1/rsvp", map[string]interface{}{
		"token":         token,
		"plus_one":      true,
		"plus_one_name": "Sam Webb",
	}, http.StatusOK)
	resp.Body.Close()

	r, _ := env.rsvps.FindByEmail(context.Background(), "nora@example.com")
	if r.NumberOfGuests != 2 {
		t.Fatalf("Expected 2 guests with plus-one, got %d", r.NumberOfGuests)
	}

	// Turn it off again; the name must clear and the count drop.
	token = env.requestToken(t, "nora@example.com")
	resp = putJSON(t, env.server.URL+"/v1/rsvp", map[string]interface{}{
		"token":    token,
		"plus_one": false,
	}, http.StatusOK)
	resp.Body.Close()

	r, _ = env.rsvps.FindByEmail(context.Background(), "nora@example.com")
	if r.NumberOfGuests != 1 {
		t.Fatalf("Expected 1 guest without plus-one, got %d", r.NumberOfGuests)
	}
	if r.PlusOneName != nil {
		t.Fatalf("Plus-one name must clear when the flag goes off, got %q", *r.PlusOneName)
	}
}

func TestUpdateRSVP_SingleUse(t *testing.T) {
	env := setupTestServer(t)
	env.createRSVP(t, "Nora Webb", "nora@example.com")
	token := env.requestToken(t, "nora@example.com")

	resp := putJSON(t, env.server.URL+"/v1/rsvp", map[string]interface{}{
		"token":     token,
		"attending": false,
	}, http.StatusOK)
	resp.Body.Close()

	// The consumed token no longer verifies or redeems.
	resp = get(t, env.server.URL+"/v1/rsvp/verify-token?token="+token, http.StatusUnauthorized)
	resp.Body.Close()
	resp = putJSON(t, env.server.URL+"/v1/rsvp", map[string]interface{}{
		"token":     token,
		"attending": true,
	}, http.StatusUnauthorized)
	resp.Body.Close()

	r, _ := env.rsvps.FindByEmail(context.Background(), "nora@example.com")
	if r.Attending {
		t.Fatal("Replayed redemption must not apply")
	}
}

func TestUpdateRSVP_EmailMismatch_Forbidden(t *testing.T) {
	env := setupTestServer(t)
	env.createRSVP(t, "Nora Webb", "nora@example.com")
	token := env.requestToken(t, "nora@example.com")

	resp := putJSON(t, env.server.URL+"/v1/rsvp", map[string]interface{}{
		"token":     token,
		"email":     "intruder@example.com",
		"attending": false,
	}, http.StatusForbidden)
	resp.Body.Close()

	// The rejected attempt must not consume the token.
	resp = get(t, env.server.URL+"/v1/rsvp/verify-token?token="+token, http.StatusOK)
	resp.Body.Close()

	// The bound email, any casing, passes.
	resp = putJSON(t, env.server.URL+"/v1/rsvp", map[string]interface{}{
		"token":     token,
		"email":     "Nora@Example.com",
		"attending": false,
	}, http.StatusOK)
	resp.Body.Close()
}

func TestUpdateRSVP_ExpiredToken_Unauthorized(t *testing.T) {
	env := setupTestServer(t)
	env.createRSVP(t, "Nora Webb", "nora@example.com")
	token := env.requestToken(t, "nora@example.com")

	env.tokens.expire(token)

	resp := putJSON(t, env.server.URL+"/v1/rsvp", map[string]interface{}{
		"token":     token,
		"attending": false,
	}, http.StatusUnauthorized)
	resp.Body.Close()

	r, _ := env.rsvps.FindByEmail(context.Background(), "nora@example.com")
	if !r.Attending {
		t.Fatal("Expired redemption must not apply")
	}
}

func TestUpdateRSVP_InvalidPatch_BadRequest(t *testing.T) {
	env := setupTestServer(t)
	env.createRSVP(t, "Nora Webb", "nora@example.com")
	token := env.requestToken(t, "nora@example.com")

	// Plus-one without a name is rejected before any consumption.
	resp := putJSON(t, env.server.URL+"/v1/rsvp", map[string]interface{}{
		"token":    token,
		"plus_one": true,
	}, http.StatusBadRequest)
	resp.Body.Close()

	resp = get(t, env.server.URL+"/v1/rsvp/verify-token?token="+token, http.StatusOK)
	resp.Body.Close()
}

func TestUpdateRSVP_ConcurrentRedemption_OneWinner(t *testing.T) {
	env := setupTestServer(t)
	env.createRSVP(t, "Nora Webb", "nora@example.com")
	token := env.requestToken(t, "nora@example.com")

	const attempts = 8
	statuses := make([]int, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := jsonBytes(map[string]interface{}{
				"token":     token,
				"attending": false,
			})
			req, err := http.NewRequest(http.MethodPut, env.server.URL+"/v1/rsvp", strings.NewReader(string(body)))
			if err != nil {
				return
			}
			req.Header.Set("Content-Type", "application/json")
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return
			}
			resp.Body.Close()
			statuses[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, s := range statuses {
		if s == http.StatusOK {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("Expected exactly one successful redemption, got %d (statuses %v)", winners, statuses)
	}
}
