package user

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/academia/core"
)

// Role is the single privilege level carried by a User. The set is closed;
// anything else is rejected at the directory boundary.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleFaculty    Role = "faculty"
	RoleStaff      Role = "staff"
	RoleStudent    Role = "student"
)

var (
	AllRoles = []Role{RoleSuperAdmin, RoleAdmin, RoleFaculty, RoleStaff, RoleStudent}

	// AdminRoles hold elevated cross-namespace views.
	AdminRoles = []Role{RoleSuperAdmin, RoleAdmin}

	// faculty and staff share a tier: neither dominates the other.
	rolePriorities = map[Role]int{
		RoleSuperAdmin: 50,
		RoleAdmin:      40,
		RoleFaculty:    30,
		RoleStaff:      30,
		RoleStudent:    10,
	}
)

func (r Role) Valid() bool {
	_, ok := rolePriorities[r]
	return ok
}

func (r Role) Priority() int {
	return rolePriorities[r]
}

// Dominates reports whether r strictly outranks other.
func (r Role) Dominates(other Role) bool {
	return r.Priority() > other.Priority()
}

// AtLeast reports whether r is min or outranks it.
func (r Role) AtLeast(min Role) bool {
	return r.Priority() >= min.Priority()
}

func (r Role) IsAdminTier() bool {
	return r == RoleSuperAdmin || r == RoleAdmin
}

func (r Role) String() string { return string(r) }

// User is an identity in the directory. Role is the sole authorization
// dimension; a User holds exactly one.
type User struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	Role         Role      `json:"role" db:"role"`
	Avatar       string    `json:"avatar,omitempty" db:"avatar"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	PasswordHash []byte    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login" db:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) IsAdminTier() bool { return u.Role.IsAdminTier() }

// NewUser contains information needed to sign a new User up.
type NewUser struct {
	FirstName       string `json:"first_name" validate:"required"`
	LastName        string `json:"last_name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	Role            Role   `json:"role" validate:"omitempty,role"`
}

func (nu *NewUser) Validate(validate *validator.Validate, svc ServiceInterface) error {
	nu.FirstName = core.CleanString(nu.FirstName)
	nu.LastName = core.CleanString(nu.LastName)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	if nu.Role == "" {
		nu.Role = RoleStudent
	}

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(nu.Email)
}

// RoleUpdate changes a User's Role.
type RoleUpdate struct {
	Role Role `json:"role" validate:"required,role"`
}

func (ru *RoleUpdate) Validate(validate *validator.Validate) error {
	return validate.Struct(ru)
}

// ResetUserPassword confirms a password reset with an emailed token.
type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required,min=8"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error {
	return validate.Struct(rp)
}
