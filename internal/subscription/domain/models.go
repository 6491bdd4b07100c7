// Package domain contains persistence models for seller subscriptions.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Tier string

const (
	TierFree         Tier = "free"
	TierStarter      Tier = "starter"
	TierProfessional Tier = "professional"
	TierEnterprise   Tier = "enterprise"
)

type SubscriptionStatus string

const (
	StatusActive    SubscriptionStatus = "active"
	StatusInactive  SubscriptionStatus = "inactive"
	StatusCancelled SubscriptionStatus = "cancelled"
)

type BillingInterval string

const (
	IntervalMonthly   BillingInterval = "monthly"
	IntervalQuarterly BillingInterval = "quarterly"
	IntervalYearly    BillingInterval = "yearly"
)

// Subscription is a seller's entitlement record. Features is a frozen
// snapshot of the tier bundle at activation time, deliberately not a
// live join to the plan catalog: later plan changes must not alter
// historical entitlements.
type Subscription struct {
	ID       snowflake.ID       `json:"id" gorm:"primaryKey"`
	SellerID snowflake.ID       `json:"seller_id" gorm:"not null;uniqueIndex"`
	Tier     Tier               `json:"tier" gorm:"type:text;not null"`
	Status   SubscriptionStatus `json:"status" gorm:"type:text;not null"`
	Features datatypes.JSON     `json:"features"`

	Billing BillingInfo `json:"billing" gorm:"embedded;embeddedPrefix:billing_"`

	MonthsSubscribed int        `json:"months_subscribed" gorm:"not null;default:0"`
	UpgradeDate      *time.Time `json:"upgrade_date"`

	History []HistoryEntry `json:"history" gorm:"foreignKey:SubscriptionID"`

	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null"`
}

func (Subscription) TableName() string { return "seller_subscriptions" }

type BillingInfo struct {
	Amount          int64           `json:"amount"`
	Currency        string          `json:"currency" gorm:"type:text"`
	Interval        BillingInterval `json:"interval" gorm:"type:text"`
	LastBillingDate *time.Time      `json:"last_billing_date"`
	NextBillingDate *time.Time      `json:"next_billing_date"`
	PaymentMethod   string          `json:"payment_method" gorm:"type:text"`
}

// HistoryEntry is append-only: one row per tier change, capturing the
// tier that was active before the change.
type HistoryEntry struct {
	ID             snowflake.ID       `json:"id" gorm:"primaryKey"`
	SubscriptionID snowflake.ID       `json:"subscription_id" gorm:"not null;index"`
	Tier           Tier               `json:"tier" gorm:"type:text;not null"`
	StartDate      time.Time          `json:"start_date" gorm:"not null"`
	EndDate        time.Time          `json:"end_date" gorm:"not null"`
	Amount         int64              `json:"amount"`
	Status         SubscriptionStatus `json:"status" gorm:"type:text;not null"`
}

func (HistoryEntry) TableName() string { return "subscription_history" }
