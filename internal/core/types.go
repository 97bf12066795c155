package core

import "rentalcore/pkg/domain"

type (
	EntityType         = domain.EntityType
	Availability       = domain.Availability
	PricingUnit        = domain.PricingUnit
	Role               = domain.Role
	Actor              = domain.Actor
	Property           = domain.Property
	Owner              = domain.Owner
	Area               = domain.Area
	StatusMark         = domain.StatusMark
	StatusConfirmation = domain.StatusConfirmation
	BookmarkKey        = domain.BookmarkKey
	NoteKey            = domain.NoteKey
	Change             = domain.Change
	Action             = domain.Action
	Severity           = domain.Severity
	Violation          = domain.Violation
	Result             = domain.Result
	Rule               = domain.Rule
	RulesEngine        = domain.RulesEngine
	RuleViolationError = domain.RuleViolationError
	PersistentStore    = domain.PersistentStore
	Transaction        = domain.Transaction
	TransactionView    = domain.TransactionView
)

const (
	EntityProperty     = domain.EntityProperty
	EntityFollowUp     = domain.EntityFollowUp
	EntityClosure      = domain.EntityClosure
	EntityConfirmation = domain.EntityConfirmation
	EntityBookmark     = domain.EntityBookmark
	EntityStaffNote    = domain.EntityStaffNote
	EntityPrivateNote  = domain.EntityPrivateNote
	EntityUserNote     = domain.EntityUserNote
)

const (
	Available = domain.Available
	Occupied  = domain.Occupied
)

const (
	RoleAdmin = domain.RoleAdmin
	RoleStaff = domain.RoleStaff
	RoleUser  = domain.RoleUser
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

// NewRulesEngine re-exports the domain constructor for core consumers.
func NewRulesEngine() *RulesEngine { return domain.NewRulesEngine() }
