package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionType distinguishes money coming in from money going out.
type TransactionType string

// TransactionType values.
const (
	TransactionTypeIncome  TransactionType = "INCOME"
	TransactionTypeExpense TransactionType = "EXPENSE"
)

// Category classifies a transaction.
type Category string

// Category values.
const (
	CategoryMoradia        Category = "MORADIA"
	CategoryContas         Category = "CONTAS"
	CategoryMercado        Category = "MERCADO"
	CategoryComidaFora     Category = "COMIDA_FORA"
	CategoryTransporte     Category = "TRANSPORTE"
	CategorySaude          Category = "SAUDE"
	CategoryEducacao       Category = "EDUCACAO"
	CategoryLazer          Category = "LAZER"
	CategoryCompras        Category = "COMPRAS"
	CategoryDividas        Category = "DIVIDAS"
	CategoryInvestimentos  Category = "INVESTIMENTOS"
	CategorySalario        Category = "SALARIO"
	CategoryOutrasReceitas Category = "OUTRAS_RECEITAS"
	CategoryOutros         Category = "OUTROS"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryMoradia,
	CategoryContas,
	CategoryMercado,
	CategoryComidaFora,
	CategoryTransporte,
	CategorySaude,
	CategoryEducacao,
	CategoryLazer,
	CategoryCompras,
	CategoryDividas,
	CategoryInvestimentos,
	CategorySalario,
	CategoryOutrasReceitas,
	CategoryOutros,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// PaymentMethod records how a transaction was paid.
type PaymentMethod string

// PaymentMethod values.
const (
	PaymentMethodDinheiro PaymentMethod = "DINHEIRO"
	PaymentMethodPix      PaymentMethod = "PIX"
	PaymentMethodCredito  PaymentMethod = "CREDITO"
)

// Transaction is a single income or expense entry owned by a user.
type Transaction struct {
	ID string `gorm:"type:varchar(36);primaryKey"` // UUID primary key.

	UserID string `gorm:"type:varchar(36);not null;index"` // Owner user ID.

	Description   string          `gorm:"type:varchar(200);not null"`  // Free-text description.
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null"` // Positive amount.
	Type          TransactionType `gorm:"type:varchar(16);not null"`   // INCOME or EXPENSE.
	Category      Category        `gorm:"type:varchar(32);not null"`   // Classification.
	PaymentMethod PaymentMethod   `gorm:"type:varchar(16);not null"`   // Payment method.
	Date          time.Time       `gorm:"not null"`                    // When the transaction happened.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// BeforeCreate assigns a UUID when none is set.
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
