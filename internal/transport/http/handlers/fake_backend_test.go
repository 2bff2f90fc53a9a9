package handlers_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeUser struct {
	ID            string  `json:"_id"`
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	Password      string  `json:"-"`
	Role          string  `json:"role"`
	Designation   string  `json:"designation"`
	BankAccountNo string  `json:"bankAccountNo"`
	Salary        float64 `json:"salary"`
	IsVerified    bool    `json:"isVerified"`
	IsFired       bool    `json:"isFired"`
	Photo         string  `json:"photo"`
}

type fakeRecord struct {
	ID          string    `json:"_id"`
	EmployeeID  string    `json:"employeeId"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Task        string    `json:"task"`
	HoursWorked float64   `json:"hoursWorked"`
	Date        time.Time `json:"date"`
}

type fakeRequest struct {
	ID            string  `json:"_id"`
	EmployeeID    string  `json:"employeeId"`
	EmployeeName  string  `json:"employeeName"`
	Salary        float64 `json:"salary"`
	Month         string  `json:"month"`
	Year          int     `json:"year"`
	Status        string  `json:"status"`
	TransactionID string  `json:"transactionId,omitempty"`
}

// fakeBackend is an in-memory stand-in for the OptimaHub REST API.
type fakeBackend struct {
	t      *testing.T
	server *httptest.Server

	mu       sync.Mutex
	seq      int
	users    map[string]*fakeUser
	records  []fakeRecord
	requests []fakeRequest
	revoked  map[string]bool
	calls    []string
	auth     []string
	bodies   map[string][]map[string]any
	delays   map[string]time.Duration
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{
		t:       t,
		users:   make(map[string]*fakeUser),
		revoked: make(map[string]bool),
		bodies:  make(map[string][]map[string]any),
		delays:  make(map[string]time.Duration),
	}
	fb.addUser(fakeUser{Name: "Ada Admin", Email: "admin@example.com", Password: "secret1", Role: "admin", Salary: 9000, IsVerified: true})
	fb.addUser(fakeUser{Name: "Hal HR", Email: "hr@example.com", Password: "secret1", Role: "hr", Salary: 6000, IsVerified: true})
	fb.addUser(fakeUser{Name: "Eve Employee", Email: "eve@example.com", Password: "secret1", Role: "employee", Salary: 4000, IsVerified: true, Designation: "Support"})
	fb.addUser(fakeUser{Name: "Ned New", Email: "ned@example.com", Password: "secret1", Role: "employee", Salary: 3500})
	fb.addUser(fakeUser{Name: "Max Manager", Email: "max@example.com", Password: "secret1", Role: "manager", Salary: 7000})
	fb.server = httptest.NewServer(http.HandlerFunc(fb.serve))
	t.Cleanup(fb.server.Close)
	return fb
}

func (fb *fakeBackend) addUser(u fakeUser) *fakeUser {
	fb.seq++
	u.ID = "u" + strconv.Itoa(fb.seq)
	fb.users[u.Email] = &u
	return &u
}

func (fb *fakeBackend) user(email string) *fakeUser {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	u := *fb.users[email]
	return &u
}

func (fb *fakeBackend) userByID(id string) *fakeUser {
	for _, u := range fb.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (fb *fakeBackend) revoke(email string) {
	fb.mu.Lock()
	fb.revoked["tok-"+email] = true
	fb.mu.Unlock()
}

// delayMonth holds back any answer to a request filtered on, or carrying, month.
func (fb *fakeBackend) delayMonth(month string, d time.Duration) {
	fb.mu.Lock()
	fb.delays[month] = d
	fb.mu.Unlock()
}

func (fb *fakeBackend) count(call string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	n := 0
	for _, c := range fb.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (fb *fakeBackend) lastAuth() string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	if len(fb.auth) == 0 {
		return ""
	}
	return fb.auth[len(fb.auth)-1]
}

func (fb *fakeBackend) lastBody(call string) map[string]any {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	bodies := fb.bodies[call]
	if len(bodies) == 0 {
		return nil
	}
	return bodies[len(bodies)-1]
}

func (fb *fakeBackend) caller(r *http.Request) (*fakeUser, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if token == "" || fb.revoked[token] {
		return nil, false
	}
	u, ok := fb.users[strings.TrimPrefix(token, "tok-")]
	return u, ok
}

func (fb *fakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	call := r.Method + " " + r.URL.Path

	fb.mu.Lock()
	fb.calls = append(fb.calls, call)
	fb.auth = append(fb.auth, r.Header.Get("Authorization"))
	fb.bodies[call] = append(fb.bodies[call], body)
	month := r.URL.Query().Get("month")
	if m, ok := body["month"].(string); ok && month == "" {
		month = m
	}
	delay := fb.delays[month]
	fb.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	fb.mu.Lock()
	defer fb.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	path := r.URL.Path
	str := func(key string) string {
		v, _ := body[key].(string)
		return v
	}

	switch {
	case call == "POST /auth/login":
		u, ok := fb.users[str("email")]
		if !ok || u.Password != str("password") {
			writeStatus(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": "tok-" + u.Email})
		return
	case call == "POST /register":
		if _, exists := fb.users[str("email")]; exists {
			writeStatus(w, http.StatusBadRequest, "user already exists")
			return
		}
		salary, _ := body["salary"].(float64)
		u := fb.addUser(fakeUser{Name: str("name"), Email: str("email"), Password: str("password"), Role: str("role"), Designation: str("designation"), BankAccountNo: str("bankAccountNo"), Salary: salary, Photo: str("photo")})
		writeJSON(w, http.StatusCreated, map[string]string{"token": "tok-" + u.Email})
		return
	case call == "POST /auth/social-login":
		u, ok := fb.users[str("email")]
		if !ok {
			u = fb.addUser(fakeUser{Name: str("name"), Email: str("email"), Role: str("role"), Photo: str("photo")})
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": "tok-" + u.Email})
		return
	case call == "POST /jwt":
		if _, ok := fb.users[str("email")]; !ok {
			writeStatus(w, http.StatusNotFound, "unknown user")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": "tok-" + str("email")})
		return
	case call == "POST /contact-us":
		writeJSON(w, http.StatusCreated, map[string]string{"message": "received"})
		return
	}

	me, ok := fb.caller(r)
	if !ok {
		writeStatus(w, http.StatusUnauthorized, "unauthorized access")
		return
	}

	switch {
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/auth/user/"):
		u, ok := fb.users[strings.TrimPrefix(path, "/auth/user/")]
		if !ok {
			writeStatus(w, http.StatusNotFound, "not found")
			return
		}
		writeJSON(w, http.StatusOK, u)
	case call == "GET /employees":
		if me.Role != "admin" {
			writeStatus(w, http.StatusForbidden, "forbidden access")
			return
		}
		writeJSON(w, http.StatusOK, fb.listUsers(func(u *fakeUser) bool { return u.IsVerified }))
	case call == "GET /hr/employees":
		writeJSON(w, http.StatusOK, fb.listUsers(func(u *fakeUser) bool { return u.Role == "employee" }))
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/details"):
		u := fb.userByID(strings.TrimSuffix(strings.TrimPrefix(path, "/employees/"), "/details"))
		if u == nil {
			writeStatus(w, http.StatusNotFound, "employee not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"_id": u.ID, "name": u.Name, "email": u.Email, "salary": u.Salary, "role": u.Role, "salaryRecords": []any{}})
	case r.Method == http.MethodPatch && strings.HasPrefix(path, "/employees/"):
		parts := strings.Split(strings.TrimPrefix(path, "/employees/"), "/")
		u := fb.userByID(parts[0])
		if u == nil || len(parts) != 2 {
			writeStatus(w, http.StatusNotFound, "employee not found")
			return
		}
		switch parts[1] {
		case "toggle-verify":
			u.IsVerified = !u.IsVerified
		case "fire":
			u.IsFired, _ = body["isFired"].(bool)
		case "change-role":
			u.Role = str("role")
		case "update-salary":
			u.Salary, _ = body["salary"].(float64)
		}
		writeJSON(w, http.StatusOK, map[string]bool{"acknowledged": true})
	case call == "GET /work-records":
		out := []fakeRecord{}
		for _, rec := range fb.records {
			if rec.Email == me.Email {
				out = append(out, rec)
			}
		}
		writeJSON(w, http.StatusOK, out)
	case call == "POST /work-records":
		fb.seq++
		hours, _ := body["hoursWorked"].(float64)
		date, _ := time.Parse(time.RFC3339, str("date"))
		fb.records = append(fb.records, fakeRecord{ID: "w" + strconv.Itoa(fb.seq), EmployeeID: me.ID, Email: me.Email, Name: me.Name, Task: str("task"), HoursWorked: hours, Date: date})
		writeJSON(w, http.StatusCreated, map[string]bool{"acknowledged": true})
	case r.Method == http.MethodPut && strings.HasPrefix(path, "/work-records/"):
		id := strings.TrimPrefix(path, "/work-records/")
		for i := range fb.records {
			if fb.records[i].ID == id {
				fb.records[i].HoursWorked, _ = body["hoursWorked"].(float64)
				fb.records[i].Task = str("task")
			}
		}
		writeJSON(w, http.StatusOK, map[string]bool{"acknowledged": true})
	case r.Method == http.MethodDelete && strings.HasPrefix(path, "/work-records/"):
		id := strings.TrimPrefix(path, "/work-records/")
		kept := fb.records[:0]
		for _, rec := range fb.records {
			if rec.ID != id {
				kept = append(kept, rec)
			}
		}
		fb.records = kept
		writeJSON(w, http.StatusOK, map[string]bool{"acknowledged": true})
	case call == "GET /hr/work-records":
		out := []fakeRecord{}
		employeeID := r.URL.Query().Get("employeeId")
		for _, rec := range fb.records {
			if employeeID == "" || rec.EmployeeID == employeeID {
				out = append(out, rec)
			}
		}
		writeJSON(w, http.StatusOK, out)
	case call == "GET /payroll-requests":
		if me.Role != "admin" {
			writeStatus(w, http.StatusForbidden, "forbidden access")
			return
		}
		out := append([]fakeRequest{}, fb.requests...)
		writeJSON(w, http.StatusOK, out)
	case call == "POST /payroll":
		employeeID := str("employeeId")
		u := fb.userByID(employeeID)
		salary, _ := body["salary"].(float64)
		year, _ := body["year"].(float64)
		fb.seq++
		fb.requests = append(fb.requests, fakeRequest{ID: "p" + strconv.Itoa(fb.seq), EmployeeID: employeeID, EmployeeName: u.Name, Salary: salary, Month: str("month"), Year: int(year), Status: "Pending"})
		writeJSON(w, http.StatusCreated, map[string]bool{"acknowledged": true})
	case call == "POST /payroll-payment":
		details, _ := body["paymentDetails"].(map[string]any)
		if details["token"] == "tok_declined" {
			writeStatus(w, http.StatusPaymentRequired, "card declined")
			return
		}
		year, _ := body["year"].(float64)
		for i := range fb.requests {
			req := &fb.requests[i]
			if req.EmployeeID == str("employeeId") && req.Month == str("month") && req.Year == int(year) {
				req.Status = "Paid"
				req.TransactionID = fmt.Sprintf("txn_%d", i+1)
				writeJSON(w, http.StatusOK, map[string]string{"transactionId": req.TransactionID, "message": "Payment successful"})
				return
			}
		}
		writeStatus(w, http.StatusNotFound, "payroll request not found")
	case call == "GET /payment-history":
		var paid []map[string]any
		for _, req := range fb.requests {
			if req.EmployeeID == me.ID && req.Status == "Paid" {
				paid = append(paid, map[string]any{"month": req.Month, "year": req.Year, "salary": req.Salary, "transactionId": req.TransactionID})
			}
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		total := (len(paid) + limit - 1) / limit
		start := min((page-1)*limit, len(paid))
		end := min(start+limit, len(paid))
		writeJSON(w, http.StatusOK, map[string]any{"data": paid[start:end], "totalPages": total, "currentPage": page})
	default:
		fb.t.Errorf("unexpected backend call %s", call)
		writeStatus(w, http.StatusNotFound, "no route")
	}
}

func (fb *fakeBackend) listUsers(keep func(*fakeUser) bool) []fakeUser {
	out := []fakeUser{}
	for _, u := range fb.users {
		if keep(u) {
			out = append(out, *u)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeStatus(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
