package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/user"
)

func Test_authApi_login(t *testing.T) {
	app, usrRepo := setup(t)
	conf := app.deps.Conf

	usr := createUser(t, usrRepo, "Alex Chen", "student@university.edu", "student123", user.RoleStudent, true)
	createUser(t, usrRepo, "N Dog", "ndog@test.cd", "mdr", user.RoleStudent, false)

	body := func(email, pwd string) []byte {
		return marchallObj(t, LoginRequest{Email: email, Password: pwd})
	}
	invalidCreds := marchallObj(t, httpErr{Error: "invalid email or password"})

	tests := []httpTest{
		{name: "empty body", body: []byte("{}"), wantCode: http.StatusBadRequest},
		{name: "unknown email", body: body("lol@test.cd", "student123"), wantCode: http.StatusUnauthorized, wantData: invalidCreds},
		{name: "wrong password", body: body("student@university.edu", "lol"), wantCode: http.StatusUnauthorized, wantData: invalidCreds},
		{name: "email is case-insensitive", body: body("Student@University.EDU", "student123"), wantCode: http.StatusOK},
		{
			name: "deactivated account", body: body("ndog@test.cd", "mdr"), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "ok", body: body("student@university.edu", "student123"), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/auth/login", tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			}
			if tt.wantCode != http.StatusOK {
				return
			}

			var resp LoginResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("unmarshalling LoginResponse: %v", err)
			}
			if resp.Token == "" {
				t.Error("expected a token")
			}
			claims, err := auth.VerifyToken(resp.Token, []byte(conf.SecretKey))
			if err != nil {
				t.Fatalf("VerifyToken() failed, %v", err)
			}
			if claims.Subject != usr.ID {
				t.Errorf("Subject = %q, want %q", claims.Subject, usr.ID)
			}
			if resp.Identity.Email != usr.Email {
				t.Errorf("Identity.Email = %q, want %q", resp.Identity.Email, usr.Email)
			}

			// the token must also travel as an HTTP-only cookie
			var cookie *http.Cookie
			for _, c := range rec.Result().Cookies() {
				if c.Name == conf.Server.CookieName {
					cookie = c
				}
			}
			if cookie == nil {
				t.Fatal("expected the auth cookie to be set")
			}
			if cookie.Value != resp.Token {
				t.Error("cookie does not carry the session token")
			}
			if !cookie.HttpOnly {
				t.Error("auth cookie must be HTTP-only")
			}
			if cookie.SameSite != http.SameSiteStrictMode {
				t.Error("auth cookie must be SameSite=Strict")
			}
		})
	}
}

func Test_authApi_signup(t *testing.T) {
	app, usrRepo := setup(t)

	createUser(t, usrRepo, "Taken", "taken@test.cd", "mdr", user.RoleStudent, true)

	body := func(nu user.NewUser) []byte { return marchallObj(t, nu) }

	tests := []httpTest{
		{name: "empty body", body: []byte("{}"), wantCode: http.StatusBadRequest},
		{
			name: "password mismatch",
			body: body(user.NewUser{FirstName: "Jane", LastName: "Mwangi", Email: "jane@test.cd", Password: "s3cr3tpwd", PasswordConfirm: "lol"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "short password",
			body: body(user.NewUser{FirstName: "Jane", LastName: "Mwangi", Email: "jane@test.cd", Password: "lol", PasswordConfirm: "lol"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown role",
			body: []byte(`{"first_name":"Jane","last_name":"Mwangi","email":"jane@test.cd","password":"s3cr3tpwd","password_confirm":"s3cr3tpwd","role":"overlord"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "admin roles cannot be self-assigned",
			body: body(user.NewUser{FirstName: "Jane", LastName: "Mwangi", Email: "jane@test.cd", Password: "s3cr3tpwd", PasswordConfirm: "s3cr3tpwd", Role: user.RoleAdmin}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"role": "this role cannot be self-assigned"}),
		},
		{
			name: "email taken",
			body: body(user.NewUser{FirstName: "Jane", LastName: "Mwangi", Email: "taken@test.cd", Password: "s3cr3tpwd", PasswordConfirm: "s3cr3tpwd"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "ok; defaults to student",
			body: body(user.NewUser{FirstName: "Jane", LastName: "Mwangi", Email: "jane@test.cd", Password: "s3cr3tpwd", PasswordConfirm: "s3cr3tpwd"}),
			wantCode: http.StatusCreated,
		},
		{
			name: "ok; faculty",
			body: body(user.NewUser{FirstName: "Sarah", LastName: "Johnson", Email: "sarah@test.cd", Password: "s3cr3tpwd", PasswordConfirm: "s3cr3tpwd", Role: user.RoleFaculty}),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/auth/signup", tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			}
			if tt.wantCode != http.StatusCreated {
				return
			}

			var usr user.User
			if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
				t.Fatalf("unmarshalling User: %v", err)
			}
			if usr.ID == "" {
				t.Error("expected an assigned ID")
			}
			if usr.Name == "" {
				t.Error("expected a composed full name")
			}
			if !usr.Role.Valid() {
				t.Errorf("Role = %q is not in the closed set", usr.Role)
			}
			if tt.name == "ok; defaults to student" && usr.Role != user.RoleStudent {
				t.Errorf("Role = %q, want %q", usr.Role, user.RoleStudent)
			}
			// signup never signs the user in
			for _, c := range rec.Result().Cookies() {
				if c.Name == app.deps.Conf.Server.CookieName && c.Value != "" {
					t.Error("signup must not set a session cookie")
				}
			}
		})
	}
}

func Test_authApi_profile(t *testing.T) {
	app, usrRepo := setup(t)
	conf := app.deps.Conf

	usr := createUser(t, usrRepo, "Alex Chen", "student@university.edu", "student123", user.RoleStudent, true)
	ghost := createUser(t, usrRepo, "Ghost", "ghost@test.cd", "mdr", user.RoleStudent, true)
	deactivated := createUser(t, usrRepo, "N Dog", "ndog@test.cd", "mdr", user.RoleStudent, true)

	ghostToken := getToken(t, conf, ghost)
	deactivatedToken := getToken(t, conf, deactivated)

	// the directory changed after both tokens were issued
	if err := usrRepo.DeleteUsersByID(nil, ghost.ID); err != nil {
		t.Fatalf("DeleteUsersByID() failed, %v", err)
	}
	deactivated.IsActive = false
	if _, err := usrRepo.UpdateUser(nil, deactivated); err != nil {
		t.Fatalf("UpdateUser() failed, %v", err)
	}

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "garbage token", token: "lol", wantCode: http.StatusUnauthorized},
		{name: "deleted account", token: ghostToken, wantCode: http.StatusUnauthorized},
		{
			name: "deactivated since issue", token: deactivatedToken, wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "ok", token: getToken(t, conf, usr), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/auth/profile", tt.token)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantData != nil {
				checkCodeAndData(t, tt, rec)
			}
			if tt.wantCode != http.StatusOK {
				return
			}

			var got user.User
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("unmarshalling User: %v", err)
			}
			if got.ID != usr.ID || got.Email != usr.Email {
				t.Errorf("got %v, want %v", got, usr)
			}
		})
	}
}

func Test_authApi_profile_viaCookie(t *testing.T) {
	app, usrRepo := setup(t)
	conf := app.deps.Conf

	usr := createUser(t, usrRepo, "Alex Chen", "student@university.edu", "student123", user.RoleStudent, true)

	req, rec := newRequest(http.MethodGet, "/auth/profile")
	req.AddCookie(&http.Cookie{Name: conf.Server.CookieName, Value: getToken(t, conf, usr)})
	app.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
}

func Test_authApi_tamperedToken(t *testing.T) {
	app, usrRepo := setup(t)

	usr := createUser(t, usrRepo, "Alex Chen", "student@university.edu", "student123", user.RoleStudent, true)

	// a token signed with another key must never verify
	badConf := testConfig()
	badConf.SecretKey = "another-key-entirely"
	token := getToken(t, badConf, usr)

	req, rec := newAuthRequest(http.MethodGet, "/auth/profile", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("code = %v; want %v", rec.Code, http.StatusUnauthorized)
	}
}

// Full session round trip: login, use the session, sign out, and watch the
// same token get refused afterwards.
func Test_authApi_sessionLifecycle(t *testing.T) {
	app, usrRepo := setup(t)
	conf := app.deps.Conf

	createUser(t, usrRepo, "Alex Chen", "student@university.edu", "student123", user.RoleStudent, true)

	// login
	req, rec := newRequest(http.MethodPost, "/auth/login", marchallObj(t, LoginRequest{Email: "student@university.edu", Password: "student123"}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login code = %v; body %s", rec.Code, rec.Body.String())
	}
	var resp LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshalling LoginResponse: %v", err)
	}

	// the session works
	req, rec = newAuthRequest(http.MethodGet, "/auth/profile", resp.Token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("profile code = %v; body %s", rec.Code, rec.Body.String())
	}

	// sign out
	req, rec = newAuthRequest(http.MethodDelete, "/auth/session", resp.Token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete session code = %v; body %s", rec.Code, rec.Body.String())
	}
	var cleared *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == conf.Server.CookieName {
			cleared = c
		}
	}
	if cleared == nil || cleared.MaxAge >= 0 || cleared.Value != "" {
		t.Error("expected the auth cookie to be cleared")
	}

	// the token is dead now, well before its expiry
	req, rec = newAuthRequest(http.MethodGet, "/auth/profile", resp.Token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("profile after signout code = %v; want %v", rec.Code, http.StatusUnauthorized)
	}

	// signing out again with the dead token is refused too
	req, rec = newAuthRequest(http.MethodDelete, "/auth/session", resp.Token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("second signout code = %v; want %v", rec.Code, http.StatusUnauthorized)
	}

	// a fresh login opens a brand new session
	req, rec = newRequest(http.MethodPost, "/auth/login", marchallObj(t, LoginRequest{Email: "student@university.edu", Password: "student123"}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("re-login code = %v", rec.Code)
	}
	var resp2 LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp2); err != nil {
		t.Fatalf("unmarshalling LoginResponse: %v", err)
	}
	if resp2.Token == resp.Token {
		t.Error("expected a fresh token")
	}
	req, rec = newAuthRequest(http.MethodGet, "/auth/profile", resp2.Token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("profile with fresh token code = %v; body %s", rec.Code, rec.Body.String())
	}
}

func Test_authApi_resetPassword(t *testing.T) {
	app, usrRepo := setup(t)

	createUser(t, usrRepo, "Alex Chen", "student@university.edu", "student123", user.RoleStudent, true)

	tests := []httpTest{
		{name: "empty body", body: []byte("{}"), wantCode: http.StatusBadRequest},
		{name: "invalid email", body: []byte(`{"email":"lol"}`), wantCode: http.StatusBadRequest},
		// an unknown address gets the same answer as a known one
		{name: "unknown email", body: []byte(`{"email":"lol@test.cd"}`), wantCode: http.StatusOK},
		{name: "known email", body: []byte(`{"email":"student@university.edu"}`), wantCode: http.StatusOK},
	}
	var prevBody string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/auth/password-reset", tt.body)
			app.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode == http.StatusOK {
				if prevBody != "" && rec.Body.String() != prevBody {
					t.Error("known and unknown addresses must be indistinguishable")
				}
				prevBody = rec.Body.String()
			}
		})
	}
}

func Test_authApi_tokenExpiry(t *testing.T) {
	app, usrRepo := setup(t)
	conf := app.deps.Conf

	usr := createUser(t, usrRepo, "Alex Chen", "student@university.edu", "student123", user.RoleStudent, true)

	claims := auth.NewClaims(usr, conf.AppName, -time.Minute) // already expired
	token, err := auth.SignToken(claims, []byte(conf.SecretKey))
	if err != nil {
		t.Fatalf("SignToken() failed, %v", err)
	}

	req, rec := newAuthRequest(http.MethodGet, "/auth/profile", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("code = %v; want %v", rec.Code, http.StatusUnauthorized)
	}
}
