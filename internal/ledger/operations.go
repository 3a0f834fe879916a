package ledger

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

const giftCardFields = `
fragment GiftCardFields on GiftCard {
  id
  maskedCode
  lastCharacters
  enabled
  note
  createdAt
  initialValue { amount currencyCode }
  balance { amount currencyCode }
}`

const createGiftCardMutation = `
mutation GiftCardCreate($input: GiftCardCreateInput!) {
  giftCardCreate(input: $input) {
    giftCard { ...GiftCardFields }
    giftCardCode
    userErrors { message field code }
  }
}` + giftCardFields

const getGiftCardQuery = `
query GiftCard($id: ID!) {
  giftCard(id: $id) { ...GiftCardFields }
}` + giftCardFields

const creditGiftCardMutation = `
mutation GiftCardCredit($id: ID!, $creditInput: GiftCardCreditInput!) {
  giftCardCredit(id: $id, creditInput: $creditInput) {
    giftCardCreditTransaction {
      id
      giftCard { ...GiftCardFields }
    }
    userErrors { message field code }
  }
}` + giftCardFields

const debitGiftCardMutation = `
mutation GiftCardDebit($id: ID!, $debitInput: GiftCardDebitInput!) {
  giftCardDebit(id: $id, debitInput: $debitInput) {
    giftCardDebitTransaction {
      id
      giftCard { ...GiftCardFields }
    }
    userErrors { message field code }
  }
}` + giftCardFields

const deactivateGiftCardMutation = `
mutation GiftCardDeactivate($id: ID!) {
  giftCardDeactivate(id: $id) {
    giftCard { ...GiftCardFields }
    userErrors { message field code }
  }
}` + giftCardFields

const activateGiftCardMutation = `
mutation GiftCardActivate($id: ID!) {
  giftCardActivate(id: $id) {
    giftCard { ...GiftCardFields }
    userErrors { message field code }
  }
}` + giftCardFields

const giftCardTransactionsQuery = `
query GiftCardTransactions($id: ID!, $first: Int!) {
  giftCard(id: $id) {
    id
    transactions(first: $first, reverse: true) {
      nodes {
        id
        note
        processedAt
        amount { amount currencyCode }
        balanceAfterTransaction { amount currencyCode }
      }
    }
  }
}`

// Operation names used in logs, spans and metrics
const (
	OpCreate       = "giftCardCreate"
	OpGet          = "giftCard"
	OpCredit       = "giftCardCredit"
	OpDebit        = "giftCardDebit"
	OpDeactivate   = "giftCardDeactivate"
	OpActivate     = "giftCardActivate"
	OpTransactions = "giftCardTransactions"
)

// CreateInput describes a new card
type CreateInput struct {
	InitialValue decimal.Decimal
	Note         string
}

// MovementInput describes a credit or debit
type MovementInput struct {
	Amount   decimal.Decimal
	Currency string
	Note     string
}

type cardMutationResult struct {
	GiftCard   *GiftCard   `json:"giftCard"`
	UserErrors []UserError `json:"userErrors"`
}

type movementTransaction struct {
	ID       string    `json:"id"`
	GiftCard *GiftCard `json:"giftCard"`
}

type movementResult struct {
	CreditTransaction *movementTransaction `json:"giftCardCreditTransaction"`
	DebitTransaction  *movementTransaction `json:"giftCardDebitTransaction"`
	UserErrors        []UserError          `json:"userErrors"`
}

func (r movementResult) card() *GiftCard {
	tx := r.CreditTransaction
	if tx == nil {
		tx = r.DebitTransaction
	}
	if tx == nil {
		return nil
	}
	return tx.GiftCard
}

// CreateGiftCard issues a new card with the given initial value
func (c *Client) CreateGiftCard(ctx context.Context, cred Credential, in CreateInput) (*CreatedGiftCard, error) {
	if in.InitialValue.IsNegative() {
		return nil, invalid("initial value must not be negative")
	}

	input := map[string]interface{}{
		"initialValue": in.InitialValue.String(),
	}
	if strings.TrimSpace(in.Note) != "" {
		input["note"] = in.Note
	}

	var out struct {
		Result struct {
			GiftCard     *GiftCard   `json:"giftCard"`
			GiftCardCode string      `json:"giftCardCode"`
			UserErrors   []UserError `json:"userErrors"`
		} `json:"giftCardCreate"`
	}

	err := c.execute(ctx, cred, OpCreate, createGiftCardMutation,
		map[string]interface{}{"input": input}, &out,
		func() []UserError { return out.Result.UserErrors })
	if err != nil {
		return nil, err
	}
	if out.Result.GiftCard == nil {
		return nil, &ProtocolError{Op: OpCreate, Message: "response has no giftCard"}
	}

	return &CreatedGiftCard{GiftCard: *out.Result.GiftCard, Code: out.Result.GiftCardCode}, nil
}

// GetGiftCard reads the current balance and status of a card
func (c *Client) GetGiftCard(ctx context.Context, cred Credential, id string) (*GiftCard, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}

	var out struct {
		GiftCard *GiftCard `json:"giftCard"`
	}
	if err := c.execute(ctx, cred, OpGet, getGiftCardQuery, map[string]interface{}{"id": GiftCardID(id)}, &out, nil); err != nil {
		return nil, err
	}
	if out.GiftCard == nil {
		return nil, &ProtocolError{Op: OpGet, Message: "gift card not found in ledger"}
	}
	return out.GiftCard, nil
}

// CreditGiftCard increases a card's balance
func (c *Client) CreditGiftCard(ctx context.Context, cred Credential, id string, in MovementInput) (*GiftCard, error) {
	return c.move(ctx, cred, OpCredit, creditGiftCardMutation, "creditInput", "creditAmount", id, in)
}

// DebitGiftCard decreases a card's balance. It is a dedicated debit, not a
// negative adjustment.
func (c *Client) DebitGiftCard(ctx context.Context, cred Credential, id string, in MovementInput) (*GiftCard, error) {
	return c.move(ctx, cred, OpDebit, debitGiftCardMutation, "debitInput", "debitAmount", id, in)
}

func (c *Client) move(ctx context.Context, cred Credential, op, query, inputVar, amountField, id string, in MovementInput) (*GiftCard, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, invalid("amount must be greater than 0")
	}
	if strings.TrimSpace(in.Currency) == "" {
		return nil, invalid("currency code is required")
	}

	input := map[string]interface{}{
		amountField: map[string]interface{}{
			"amount":       in.Amount.String(),
			"currencyCode": in.Currency,
		},
	}
	if strings.TrimSpace(in.Note) != "" {
		input["note"] = in.Note
	}

	var out map[string]movementResult
	err := c.execute(ctx, cred, op, query,
		map[string]interface{}{"id": GiftCardID(id), inputVar: input}, &out,
		func() []UserError { return out[op].UserErrors })
	if err != nil {
		return nil, err
	}

	card := out[op].card()
	if card == nil {
		return nil, &ProtocolError{Op: op, Message: "response has no giftCard"}
	}
	return card, nil
}

// DeactivateGiftCard disables a card so it can no longer transact
func (c *Client) DeactivateGiftCard(ctx context.Context, cred Credential, id string) (*GiftCard, error) {
	return c.setEnabled(ctx, cred, OpDeactivate, deactivateGiftCardMutation, id)
}

// ActivateGiftCard re-enables a disabled card
func (c *Client) ActivateGiftCard(ctx context.Context, cred Credential, id string) (*GiftCard, error) {
	return c.setEnabled(ctx, cred, OpActivate, activateGiftCardMutation, id)
}

func (c *Client) setEnabled(ctx context.Context, cred Credential, op, query, id string) (*GiftCard, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}

	var out map[string]cardMutationResult
	err := c.execute(ctx, cred, op, query, map[string]interface{}{"id": GiftCardID(id)}, &out,
		func() []UserError { return out[op].UserErrors })
	if err != nil {
		return nil, err
	}

	card := out[op].GiftCard
	if card == nil {
		return nil, &ProtocolError{Op: op, Message: "response has no giftCard"}
	}
	return card, nil
}

// ListTransactions returns up to first transactions, newest first
func (c *Client) ListTransactions(ctx context.Context, cred Credential, id string, first int) ([]Transaction, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}
	if first <= 0 {
		return nil, invalid("page size must be greater than 0")
	}

	var out struct {
		GiftCard *struct {
			ID           string `json:"id"`
			Transactions struct {
				Nodes []Transaction `json:"nodes"`
			} `json:"transactions"`
		} `json:"giftCard"`
	}
	err := c.execute(ctx, cred, OpTransactions, giftCardTransactionsQuery,
		map[string]interface{}{"id": GiftCardID(id), "first": first}, &out, nil)
	if err != nil {
		return nil, err
	}
	if out.GiftCard == nil {
		return nil, &ProtocolError{Op: OpTransactions, Message: "gift card not found in ledger"}
	}

	txs := out.GiftCard.Transactions.Nodes
	if txs == nil {
		txs = []Transaction{}
	}
	return txs, nil
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return invalid("gift card id is required")
	}
	return nil
}
