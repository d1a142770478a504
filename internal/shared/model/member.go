package model

import "time"

// MemberName 成员姓名
type MemberName struct {
	FirstName string `json:"firstname" bson:"firstname"`
	LastName  string `json:"lastname" bson:"lastname"`
}

// MemberContact 成员联系方式
type MemberContact struct {
	Email    string `json:"email,omitempty" bson:"email,omitempty"`
	Phone    string `json:"phone,omitempty" bson:"phone,omitempty"`
	LinkedIn string `json:"linkedin,omitempty" bson:"linkedin,omitempty"`
}

// Member 实验室成员档案，与 User 松散关联
type Member struct {
	ID        string        `json:"_id" bson:"_id"`
	Name      MemberName    `json:"name" bson:"name"`
	Username  string        `json:"username,omitempty" bson:"username,omitempty"`
	Project   string        `json:"project,omitempty" bson:"project,omitempty"`
	Position  string        `json:"position,omitempty" bson:"position,omitempty"`
	Contact   MemberContact `json:"contact" bson:"contact"`
	IsAlumni  bool          `json:"isAlumni" bson:"isAlumni"`
	Blurb     string        `json:"blurb,omitempty" bson:"blurb,omitempty"`
	CreatedAt time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt" bson:"updatedAt"`
}
