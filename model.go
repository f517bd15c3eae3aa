package tally

import "github.com/shopspring/decimal"

// Money is a decimal amount that marshals as a bare JSON number, matching
// the API wire format. Unmarshaling accepts numbers and strings.
type Money struct {
	decimal.Decimal
}

// NewMoney wraps a decimal amount.
func NewMoney(d decimal.Decimal) Money {
	return Money{d}
}

// MarshalJSON encodes the amount as an unquoted number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// PaymentStatus is the server-assigned billing status of a customer.
type PaymentStatus string

const (
	// StatusPaid indicates the current invoice has been settled.
	StatusPaid PaymentStatus = "pago"

	// StatusPending indicates the current invoice is awaiting payment.
	StatusPending PaymentStatus = "pendente"

	// StatusOverdue indicates the current invoice is past its due day.
	StatusOverdue PaymentStatus = "atrasado"
)

// String returns the wire representation of the status.
func (s PaymentStatus) String() string {
	return string(s)
}

// Customer is the client's cached copy of a server-held customer record.
// Field tags follow the API's wire names; the server owns the record and the
// Board replaces cached copies wholesale on refresh.
type Customer struct {
	ID            string        `json:"id"`
	Name          string        `json:"nome"`
	Document      *string       `json:"documento_cpf_cnpj"`
	MonthlyAmount Money         `json:"valor_mensalidade"`
	DueDay        int           `json:"dia_vencimento"`
	Active        bool          `json:"status_ativo"`
	PaymentStatus PaymentStatus `json:"status_pagamento"`
}

// KPISnapshot holds the billing aggregates shown on the dashboard.
// Derived entirely server-side; the Board treats it as immutable and
// replaces it on every refresh.
type KPISnapshot struct {
	TotalReceived       Money `json:"total_recebido"`
	InvoicesToIssue     int   `json:"notas_a_emitir"`
	DelinquentCustomers int   `json:"clientes_inadimplentes"`
}

// SyncReport is the outcome of a bank statement reconciliation run.
type SyncReport struct {
	Message               string `json:"message"`
	StatementTransactions int    `json:"transacoes_extrato"`
	MatchesCreated        int    `json:"matches_criados"`
}

// CustomerDraft is the payload for creating a customer. Business validation
// (positive amount, due day range) is server-side; the draft passes fields
// through as entered.
type CustomerDraft struct {
	Name          string  `json:"nome"`
	Document      *string `json:"documento_cpf_cnpj"`
	MonthlyAmount Money   `json:"valor_mensalidade"`
	DueDay        int     `json:"dia_vencimento"`
	Active        *bool   `json:"status_ativo,omitempty"`
}

// CustomerPatch is a partial update. Only non-nil fields are sent, so the
// server changes exactly the fields the caller provided.
type CustomerPatch struct {
	Name          *string `json:"nome,omitempty"`
	Document      *string `json:"documento_cpf_cnpj,omitempty"`
	MonthlyAmount *Money  `json:"valor_mensalidade,omitempty"`
	DueDay        *int    `json:"dia_vencimento,omitempty"`
	Active        *bool   `json:"status_ativo,omitempty"`
}
