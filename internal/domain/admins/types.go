package admins

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

type Admin struct {
	ID          bson.ObjectID `json:"id" bson:"_id,omitempty"`
	Username    string        `json:"username" bson:"username"`
	Password    password      `json:"-" bson:"-"`
	Email       string        `json:"email,omitempty" bson:"email,omitempty"`
	Role        string        `json:"role" bson:"role"`
	Permissions []string      `json:"permissions" bson:"permissions"`
	IsActive    bool          `json:"is_active" bson:"is_active"`
	CreatedAt   time.Time     `json:"created_at" bson:"created_at"`
	LastLogin   *time.Time    `json:"last_login,omitempty" bson:"last_login,omitempty"`
}

// Password struct to store plain text and hash
type password struct {
	text *string
	hash []byte
}

func (p *password) Set(text string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(text), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	p.text = &text
	p.hash = hash

	return nil
}

func (p *password) Compare(text string) error {
	return bcrypt.CompareHashAndPassword(p.hash, []byte(text))
}

// document is the stored shape; the bcrypt hash lives in "password".
type document struct {
	Admin `bson:",inline"`
	Hash  string `bson:"password"`
}

func (d *document) admin() *Admin {
	a := d.Admin
	a.Password.hash = []byte(d.Hash)
	if a.Permissions == nil {
		a.Permissions = []string{}
	}
	return &a
}
