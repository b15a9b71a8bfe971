package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Umer-Fazal/pharmacore/internal/domain"
	"github.com/Umer-Fazal/pharmacore/internal/secrets"
)

type PatientRepo interface {
	FindByAccountID(ctx context.Context, accountID int64) (*domain.Patient, error)
	Create(ctx context.Context, accountID int64, name, email, address, contact string) (*domain.Patient, error)
	UpdateProfile(ctx context.Context, accountID int64, name, address, contact string) error
}

// PatientRepoImpl encrypts address/contact before writes and decrypts them
// on reads, falling back to the stored value for legacy plaintext rows.
type PatientRepoImpl struct {
	pool   *pgxpool.Pool
	cipher *secrets.FieldCipher
}

func NewPatientRepo(pool *pgxpool.Pool, cipher *secrets.FieldCipher) *PatientRepoImpl {
	return &PatientRepoImpl{pool: pool, cipher: cipher}
}

const patientCols = `id, account_id, name, email, address, contact, created_at`

func (r *PatientRepoImpl) FindByAccountID(ctx context.Context, accountID int64) (*domain.Patient, error) {
	const q = `SELECT ` + patientCols + ` FROM patients WHERE account_id = $1`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var p domain.Patient
	err := r.pool.QueryRow(ctx, q, accountID).Scan(
		&p.ID, &p.AccountID, &p.Name, &p.Email, &p.Address, &p.Contact, &p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Address = r.cipher.DecryptField(p.Address)
	p.Contact = r.cipher.DecryptField(p.Contact)
	return &p, nil
}

func (r *PatientRepoImpl) Create(ctx context.Context, accountID int64, name, email, address, contact string) (*domain.Patient, error) {
	const q = `INSERT INTO patients (account_id, name, email, address, contact)
  VALUES ($1, $2, $3, $4, $5)
  RETURNING ` + patientCols
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var p domain.Patient
	err := r.pool.QueryRow(ctx, q,
		accountID, name, email,
		r.cipher.EncryptField(address),
		r.cipher.EncryptField(contact),
	).Scan(
		&p.ID, &p.AccountID, &p.Name, &p.Email, &p.Address, &p.Contact, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Address = r.cipher.DecryptField(p.Address)
	p.Contact = r.cipher.DecryptField(p.Contact)
	return &p, nil
}

func (r *PatientRepoImpl) UpdateProfile(ctx context.Context, accountID int64, name, address, contact string) error {
	const q = `UPDATE patients SET name = $1, address = $2, contact = $3 WHERE account_id = $4`
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q,
		name,
		r.cipher.EncryptField(address),
		r.cipher.EncryptField(contact),
		accountID,
	)
	return err
}

var _ PatientRepo = (*PatientRepoImpl)(nil)
