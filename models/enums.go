package models

import (
	"encoding/json"
	"errors"
)

type UserRole string

const (
	UserRoleAdmin    UserRole = "A"
	UserRoleStandard UserRole = "S"
)

func (p UserRole) IsAdmin() bool {
	return p == UserRoleAdmin
}

func (p *UserRole) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("user role must be string")
	}

	userRole := map[string]UserRole{
		"A": UserRoleAdmin,
		"S": UserRoleStandard,
	}

	var ok bool
	*p, ok = userRole[str]
	if !ok {
		return errors.New("invalid user role")
	}
	return nil
}

// OutboxReferenceType identifies the entity an outbox event describes.
type OutboxReferenceType string

const (
	OutboxReferenceTypePerson OutboxReferenceType = "P"
	OutboxReferenceTypeReport OutboxReferenceType = "R"
)

type OutboxAction string

const (
	OutboxActionCreate OutboxAction = "C"
	OutboxActionUpdate OutboxAction = "U"
	OutboxActionDelete OutboxAction = "D"
)

// event type published to pub/sub, e.g. "person.created"
func eventType(refType OutboxReferenceType, action OutboxAction) string {
	var entity, verb string
	switch refType {
	case OutboxReferenceTypePerson:
		entity = "person"
	case OutboxReferenceTypeReport:
		entity = "report"
	default:
		entity = string(refType)
	}
	switch action {
	case OutboxActionCreate:
		verb = "created"
	case OutboxActionUpdate:
		verb = "updated"
	case OutboxActionDelete:
		verb = "deleted"
	default:
		verb = string(action)
	}
	return entity + "." + verb
}
