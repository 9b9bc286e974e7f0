package models

import (
	"time"

	"github.com/fleetrent/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChargeModel is the persistence model for the Charge aggregate root.
type ChargeModel struct {
	TenantAggregateModel
	ChargeNumber      string                     `gorm:"type:varchar(50);not null;uniqueIndex:idx_charge_tenant_number,priority:2"`
	ContractID        uuid.UUID                  `gorm:"type:uuid;not null;index"`
	Category          ledger.ChargeCategory      `gorm:"type:varchar(30);not null;index"`
	Description       string                     `gorm:"type:varchar(500)"`
	Amount            decimal.Decimal            `gorm:"type:decimal(18,4);not null"`
	PaidAmount        decimal.Decimal            `gorm:"type:decimal(18,4);not null"`
	OutstandingAmount decimal.Decimal            `gorm:"type:decimal(18,4);not null;index"`
	Status            ledger.ChargeStatus        `gorm:"type:varchar(20);not null;default:'UNPAID';index"`
	DueDate           *time.Time                 `gorm:"type:date;index"`
	EntryDate         time.Time                  `gorm:"not null;index"`
	Applications      ledger.PaymentApplications `gorm:"type:jsonb;default:'[]'"`
	PaidAt            *time.Time
	CancelledAt       *time.Time
	CancelReason      string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (ChargeModel) TableName() string {
	return "charges"
}

// ToDomain converts the persistence model to a domain Charge entity.
func (m *ChargeModel) ToDomain() *ledger.Charge {
	return &ledger.Charge{
		TenantAggregateRoot: m.DomainRoot(),
		ChargeNumber:        m.ChargeNumber,
		ContractID:          m.ContractID,
		Category:            m.Category,
		Description:         m.Description,
		Amount:              m.Amount,
		PaidAmount:          m.PaidAmount,
		OutstandingAmount:   m.OutstandingAmount,
		Status:              m.Status,
		DueDate:             m.DueDate,
		EntryDate:           m.EntryDate,
		Applications:        m.Applications,
		PaidAt:              m.PaidAt,
		CancelledAt:         m.CancelledAt,
		CancelReason:        m.CancelReason,
	}
}

// FromDomain populates the persistence model from a domain Charge entity.
func (m *ChargeModel) FromDomain(c *ledger.Charge) {
	m.FromDomainTenantAggregateRoot(c.TenantAggregateRoot)
	m.ChargeNumber = c.ChargeNumber
	m.ContractID = c.ContractID
	m.Category = c.Category
	m.Description = c.Description
	m.Amount = c.Amount
	m.PaidAmount = c.PaidAmount
	m.OutstandingAmount = c.OutstandingAmount
	m.Status = c.Status
	m.DueDate = c.DueDate
	m.EntryDate = c.EntryDate
	m.Applications = c.Applications
	m.PaidAt = c.PaidAt
	m.CancelledAt = c.CancelledAt
	m.CancelReason = c.CancelReason
}

// ChargeModelFromDomain creates a new persistence model from a domain Charge.
func ChargeModelFromDomain(c *ledger.Charge) *ChargeModel {
	m := &ChargeModel{}
	m.FromDomain(c)
	return m
}

// PaymentModel is the persistence model for the Payment aggregate root.
type PaymentModel struct {
	TenantAggregateModel
	PaymentNumber     string                   `gorm:"type:varchar(50);not null;uniqueIndex:idx_payment_tenant_number,priority:2"`
	ContractID        uuid.UUID                `gorm:"type:uuid;not null;index"`
	Amount            decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	AllocatedAmount   decimal.Decimal          `gorm:"type:decimal(18,4);not null"`
	UnallocatedAmount decimal.Decimal          `gorm:"type:decimal(18,4);not null;index"`
	Method            ledger.PaymentMethod     `gorm:"type:varchar(20);not null"`
	Purpose           ledger.PaymentPurpose    `gorm:"type:varchar(20);not null;default:'GENERAL'"`
	Reference         string                   `gorm:"type:varchar(100);index"`
	Status            ledger.PaymentStatus     `gorm:"type:varchar(20);not null;default:'RECEIVED';index"`
	ReceivedAt        time.Time                `gorm:"not null;index"`
	Allocations       ledger.ChargeAllocations `gorm:"type:jsonb;default:'[]'"`
	AllocatedAt       *time.Time
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment entity.
func (m *PaymentModel) ToDomain() *ledger.Payment {
	return &ledger.Payment{
		TenantAggregateRoot: m.DomainRoot(),
		PaymentNumber:       m.PaymentNumber,
		ContractID:          m.ContractID,
		Amount:              m.Amount,
		AllocatedAmount:     m.AllocatedAmount,
		UnallocatedAmount:   m.UnallocatedAmount,
		Method:              m.Method,
		Purpose:             m.Purpose,
		Reference:           m.Reference,
		Status:              m.Status,
		ReceivedAt:          m.ReceivedAt,
		Allocations:         m.Allocations,
		AllocatedAt:         m.AllocatedAt,
	}
}

// FromDomain populates the persistence model from a domain Payment entity.
func (m *PaymentModel) FromDomain(p *ledger.Payment) {
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	m.PaymentNumber = p.PaymentNumber
	m.ContractID = p.ContractID
	m.Amount = p.Amount
	m.AllocatedAmount = p.AllocatedAmount
	m.UnallocatedAmount = p.UnallocatedAmount
	m.Method = p.Method
	m.Purpose = p.Purpose
	m.Reference = p.Reference
	m.Status = p.Status
	m.ReceivedAt = p.ReceivedAt
	m.Allocations = p.Allocations
	m.AllocatedAt = p.AllocatedAt
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment.
func PaymentModelFromDomain(p *ledger.Payment) *PaymentModel {
	m := &PaymentModel{}
	m.FromDomain(p)
	return m
}
