// internal/services/secret_resolver_test.go
package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthbridge/enroll-backend/internal/models"
	"github.com/healthbridge/enroll-backend/internal/utils"
	"github.com/healthbridge/enroll-backend/internal/vault"
)

type fakeVault struct {
	card *vault.CardSecret
	bank *vault.BankSecret
	err  error
}

func (f *fakeVault) GetCardSecret(ctx context.Context, secretID string) (*vault.CardSecret, error) {
	return f.card, f.err
}

func (f *fakeVault) GetBankSecret(ctx context.Context, secretID string) (*vault.BankSecret, error) {
	return f.bank, f.err
}

type fakeInstrumentStore struct {
	instrument *models.SavedPaymentInstrument
	err        error
}

func (f *fakeInstrumentStore) GetSavedInstrument(ctx context.Context, id string) (*models.SavedPaymentInstrument, error) {
	return f.instrument, f.err
}

var resolverKey = []byte("0123456789abcdef0123456789abcdef")

func encryptOrFail(t *testing.T, plaintext string) string {
	t.Helper()
	ciphertext, err := utils.EncryptField(resolverKey, plaintext)
	require.NoError(t, err)
	return ciphertext
}

func vaultBackedRecord(instrumentID uuid.UUID) *models.PaymentInstrumentRecord {
	return &models.PaymentInstrumentRecord{
		ApplicationID:     uuid.New(),
		IsCurrent:         true,
		PaymentMethod:     models.PaymentMethodCreditCard,
		HolderName:        "Maria de la Cruz",
		SavedInstrumentID: &instrumentID,
	}
}

func TestResolveNilRecord(t *testing.T) {
	resolver := NewSecretResolver(&fakeVault{}, &fakeInstrumentStore{}, resolverKey, false)

	_, err := resolver.Resolve(context.Background(), nil)

	subErr, ok := AsSubmissionError(err)
	require.True(t, ok)
	assert.Equal(t, ErrCodePaymentResolutionFailed, subErr.Code)
	assert.Equal(t, ResolutionNoCurrentInstrument, ResolutionKindOf(subErr))
}

func TestResolveVaultBackedCard(t *testing.T) {
	instrument := &models.SavedPaymentInstrument{
		Brand:         "visa",
		LastFour:      "1881",
		ExpMonth:      4,
		ExpYear:       2029,
		HolderName:    "Maria de la Cruz",
		PaymentMethod: models.PaymentMethodCreditCard,
		VaultSecretID: "pay/inst-1881",
	}
	instrument.ID = uuid.New()

	v := &fakeVault{card: &vault.CardSecret{Number: "4111111111111881", CVV: "321"}}
	resolver := NewSecretResolver(v, &fakeInstrumentStore{instrument: instrument}, resolverKey, false)

	fields, err := resolver.Resolve(context.Background(), vaultBackedRecord(instrument.ID))

	require.NoError(t, err)
	require.NotNil(t, fields.Card)
	assert.Nil(t, fields.Bank)
	assert.Equal(t, "4111111111111881", fields.Card.Number)
	assert.Equal(t, "321", fields.Card.CVV)
	assert.Equal(t, "visa", fields.Card.Brand)
	assert.Equal(t, "Maria", fields.Card.HolderFirst)
	assert.Equal(t, "de la Cruz", fields.Card.HolderLast)
}

func TestResolveVaultBackedBank(t *testing.T) {
	instrument := &models.SavedPaymentInstrument{
		AccountType:   "checking",
		BankName:      "First Federal",
		HolderName:    "Sam Okafor",
		PaymentMethod: models.PaymentMethodACH,
		VaultSecretID: "pay/inst-ach-1",
	}
	instrument.ID = uuid.New()

	v := &fakeVault{bank: &vault.BankSecret{AccountNumber: "000123456789", RoutingNumber: "021000021"}}
	resolver := NewSecretResolver(v, &fakeInstrumentStore{instrument: instrument}, resolverKey, false)

	draftDay := time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC)
	record := vaultBackedRecord(instrument.ID)
	record.PaymentMethod = models.PaymentMethodACH
	record.DesiredDraftDate = &draftDay

	fields, err := resolver.Resolve(context.Background(), record)

	require.NoError(t, err)
	require.NotNil(t, fields.Bank)
	assert.Equal(t, "000123456789", fields.Bank.AccountNumber)
	assert.Equal(t, "021000021", fields.Bank.RoutingNumber)
	assert.Equal(t, "checking", fields.Bank.AccountType)
	assert.Equal(t, "2026-10-05", fields.Bank.DesiredDraftDate)
}

func TestResolveVaultLookupFailure(t *testing.T) {
	resolver := NewSecretResolver(&fakeVault{}, &fakeInstrumentStore{err: errors.New("permission denied")}, resolverKey, false)

	_, err := resolver.Resolve(context.Background(), vaultBackedRecord(uuid.New()))

	subErr, ok := AsSubmissionError(err)
	require.True(t, ok)
	assert.Equal(t, ResolutionVaultLookupFailed, ResolutionKindOf(subErr))
	assert.Contains(t, subErr.Message, "access-control policy")
}

func TestResolveVaultRetrievalFailure(t *testing.T) {
	instrument := &models.SavedPaymentInstrument{
		PaymentMethod: models.PaymentMethodCreditCard,
		VaultSecretID: "pay/inst-gone",
	}
	instrument.ID = uuid.New()

	// Vault reachable but the secret is gone: (nil, nil) from the vault.
	resolver := NewSecretResolver(&fakeVault{}, &fakeInstrumentStore{instrument: instrument}, resolverKey, false)

	_, err := resolver.Resolve(context.Background(), vaultBackedRecord(instrument.ID))

	subErr, ok := AsSubmissionError(err)
	require.True(t, ok)
	assert.Equal(t, ResolutionVaultRetrievalFailed, ResolutionKindOf(subErr))
}

func TestResolveCorruptInstrumentWithoutVaultSecret(t *testing.T) {
	instrument := &models.SavedPaymentInstrument{
		LastFour:      "7777",
		PaymentMethod: models.PaymentMethodCreditCard,
	}
	instrument.ID = uuid.New()

	resolver := NewSecretResolver(&fakeVault{}, &fakeInstrumentStore{instrument: instrument}, resolverKey, false)

	_, err := resolver.Resolve(context.Background(), vaultBackedRecord(instrument.ID))

	subErr, ok := AsSubmissionError(err)
	require.True(t, ok)
	assert.Equal(t, ResolutionCorruptInstrument, ResolutionKindOf(subErr))
	assert.Contains(t, subErr.Message, "re-add the payment method")
}

func TestResolveSentinelTestCard(t *testing.T) {
	instrument := &models.SavedPaymentInstrument{
		Brand:         "visa",
		LastFour:      "4242",
		ExpMonth:      1,
		ExpYear:       2031,
		HolderName:    "Test User",
		PaymentMethod: models.PaymentMethodCreditCard,
	}
	instrument.ID = uuid.New()

	store := &fakeInstrumentStore{instrument: instrument}

	// Fixtures enabled: the missing vault secret resolves to the sentinel.
	resolver := NewSecretResolver(&fakeVault{}, store, resolverKey, true)
	fields, err := resolver.Resolve(context.Background(), vaultBackedRecord(instrument.ID))
	require.NoError(t, err)
	assert.Equal(t, "4242424242424242", fields.Card.Number)
	assert.Equal(t, "999", fields.Card.CVV)

	// Fixtures disabled: the same instrument is corrupt.
	resolver = NewSecretResolver(&fakeVault{}, store, resolverKey, false)
	_, err = resolver.Resolve(context.Background(), vaultBackedRecord(instrument.ID))
	subErr, ok := AsSubmissionError(err)
	require.True(t, ok)
	assert.Equal(t, ResolutionCorruptInstrument, ResolutionKindOf(subErr))
}

func TestResolveInlineCard(t *testing.T) {
	record := &models.PaymentInstrumentRecord{
		PaymentMethod: models.PaymentMethodCreditCard,
		CardNumberEnc: encryptOrFail(t, "5454545454545454"),
		CardCVVEnc:    encryptOrFail(t, "123"),
		HolderName:    "Lee Park",
		CardBrand:     "mastercard",
		ExpMonth:      7,
		ExpYear:       2028,
	}

	resolver := NewSecretResolver(&fakeVault{}, &fakeInstrumentStore{}, resolverKey, false)
	fields, err := resolver.Resolve(context.Background(), record)

	require.NoError(t, err)
	require.NotNil(t, fields.Card)
	assert.Equal(t, "5454545454545454", fields.Card.Number)
	assert.Equal(t, "123", fields.Card.CVV)
	assert.Equal(t, "Lee", fields.Card.HolderFirst)
	assert.Equal(t, "Park", fields.Card.HolderLast)
}

func TestResolveInlineBank(t *testing.T) {
	record := &models.PaymentInstrumentRecord{
		PaymentMethod:    models.PaymentMethodACH,
		AccountNumberEnc: encryptOrFail(t, "000987654321"),
		RoutingNumberEnc: encryptOrFail(t, "121000358"),
		AccountType:      "savings",
		BankName:         "Coastal Credit Union",
		HolderName:       "Dana Whitfield",
	}

	resolver := NewSecretResolver(&fakeVault{}, &fakeInstrumentStore{}, resolverKey, false)
	fields, err := resolver.Resolve(context.Background(), record)

	require.NoError(t, err)
	require.NotNil(t, fields.Bank)
	assert.Equal(t, "000987654321", fields.Bank.AccountNumber)
	assert.Equal(t, "121000358", fields.Bank.RoutingNumber)
	assert.Equal(t, "savings", fields.Bank.AccountType)
}

func TestResolveInlineMissingFields(t *testing.T) {
	record := &models.PaymentInstrumentRecord{
		PaymentMethod: models.PaymentMethodCreditCard,
		CardNumberEnc: encryptOrFail(t, "5454545454545454"),
		// CVV ciphertext absent
	}

	resolver := NewSecretResolver(&fakeVault{}, &fakeInstrumentStore{}, resolverKey, false)
	_, err := resolver.Resolve(context.Background(), record)

	subErr, ok := AsSubmissionError(err)
	require.True(t, ok)
	assert.Equal(t, ResolutionMissingEncryptedField, ResolutionKindOf(subErr))
}

func TestResolveInlineDecryptionFailure(t *testing.T) {
	otherKey := []byte("ffffffffffffffffffffffffffffffff")
	badCiphertext, err := utils.EncryptField(otherKey, "5454545454545454")
	require.NoError(t, err)

	record := &models.PaymentInstrumentRecord{
		PaymentMethod: models.PaymentMethodCreditCard,
		CardNumberEnc: badCiphertext,
		CardCVVEnc:    encryptOrFail(t, "123"),
	}

	resolver := NewSecretResolver(&fakeVault{}, &fakeInstrumentStore{}, resolverKey, false)
	_, err = resolver.Resolve(context.Background(), record)

	subErr, ok := AsSubmissionError(err)
	require.True(t, ok)
	assert.Equal(t, ResolutionDecryptionFailed, ResolutionKindOf(subErr))
}

func TestSplitHolderName(t *testing.T) {
	cases := []struct {
		in    string
		first string
		last  string
	}{
		{"", "", ""},
		{"Cher", "Cher", ""},
		{"Jordan Reyes", "Jordan", "Reyes"},
		{"  Maria   de la Cruz  ", "Maria", "de la Cruz"},
	}
	for _, tc := range cases {
		first, last := splitHolderName(tc.in)
		assert.Equal(t, tc.first, first, tc.in)
		assert.Equal(t, tc.last, last, tc.in)
	}
}
