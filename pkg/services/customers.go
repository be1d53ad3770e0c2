package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bddaily/bddaily-server/pkg/feishu"
	"github.com/bddaily/bddaily-server/pkg/mapping"
	"github.com/bddaily/bddaily-server/pkg/models"
)

// CustomerService provides operations on the customer table.
type CustomerService interface {
	// List returns customers, filtered by a case-insensitive keyword when non-empty.
	List(ctx context.Context, keyword string) ([]models.Customer, error)

	// Get returns one customer by record id or business customer id.
	Get(ctx context.Context, customerID string) (*models.Customer, error)

	// Create writes a new customer row.
	Create(ctx context.Context, in *models.CustomerInput) (*WriteResult, error)

	// Update writes the non-blank fields of in. The customer id column is never written.
	Update(ctx context.Context, customerID string, in *models.CustomerInput) (*WriteResult, error)
}

type customerService struct {
	client    BitableClient
	fieldMaps *FieldMapCache
	persons   *PersonResolver
	table     feishu.Table
	scanSize  int
	logger    *zap.Logger
}

// NewCustomerService creates a new customer service.
func NewCustomerService(
	client BitableClient,
	fieldMaps *FieldMapCache,
	persons *PersonResolver,
	tables Tables,
	scanSize int,
	logger *zap.Logger,
) CustomerService {
	return &customerService{
		client:    client,
		fieldMaps: fieldMaps,
		persons:   persons,
		table:     tables.Customer,
		scanSize:  scanSize,
		logger:    logger.Named("customers"),
	}
}

var _ CustomerService = (*customerService)(nil)

// MapCustomer flattens a customer row.
func MapCustomer(rec feishu.Record) models.Customer {
	cells := mapping.CellsOf(rec)
	f := models.CustomerField

	c := models.Customer{
		ID:                rec.RecordID,
		CustomerID:        mapping.Identifier(rec, f.CustomerID, "customerId"),
		ShortName:         cells.Text(f.ShortName, "shortName"),
		BrandName:         cells.Text(f.BrandName, "brandName"),
		CompanyName:       cells.Text(f.CompanyName, "companyName"),
		HQ:                cells.Text(f.HQ, "hq"),
		CustomerType:      mapping.PickSingle(cells.First(f.CustomerType, "customerType")),
		Level:             mapping.PickSingle(cells.First(f.Level, "level")),
		CooperationStatus: mapping.PickSingle(cells.First(f.CooperationStatus, "cooperationStatus")),
		Industry:          mapping.PickSingle(cells.First(f.Industry, "industry")),
		IsAnnual:          mapping.Flag(cells.Coalesce(f.IsAnnual, "isAnnual")),
		BDOwner:           cells.Text(f.BDOwner, "bdOwner"),
	}

	if people, ok := cells.Get(f.BDOwner).Items(); ok && len(people) > 0 {
		c.OwnerUserID = pickPersonID(people[0])
	}
	return c
}

func (s *customerService) List(ctx context.Context, keyword string) ([]models.Customer, error) {
	if err := requireTable(s.table, customerTableMissing); err != nil {
		return nil, err
	}

	records, err := s.client.ListRecords(ctx, s.table, s.scanSize)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}

	keyword = strings.ToLower(strings.TrimSpace(keyword))
	customers := make([]models.Customer, 0, len(records))
	for _, rec := range records {
		c := MapCustomer(rec)
		if keyword != "" && !customerMatches(c, keyword) {
			continue
		}
		customers = append(customers, c)
	}
	return customers, nil
}

func customerMatches(c models.Customer, keyword string) bool {
	for _, s := range []string{c.CustomerID, c.ShortName, c.BrandName, c.CompanyName} {
		if strings.Contains(strings.ToLower(s), keyword) {
			return true
		}
	}
	return false
}

func (s *customerService) Get(ctx context.Context, customerID string) (*models.Customer, error) {
	if err := requireTable(s.table, customerTableMissing); err != nil {
		return nil, err
	}
	customerID = strings.TrimSpace(customerID)

	if IsRecordID(customerID) {
		rec, err := s.client.GetRecord(ctx, s.table, customerID)
		if err != nil {
			return nil, fmt.Errorf("get customer: %w", err)
		}
		c := MapCustomer(*rec)
		return &c, nil
	}

	rec, err := s.findByCustomerID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	c := MapCustomer(*rec)
	return &c, nil
}

func (s *customerService) findByCustomerID(ctx context.Context, customerID string) (*feishu.Record, error) {
	records, err := s.client.ListRecords(ctx, s.table, s.scanSize)
	if err != nil {
		return nil, fmt.Errorf("scan customers: %w", err)
	}
	for i := range records {
		if mapping.CellsOf(records[i]).Text(models.CustomerField.CustomerID) == customerID {
			return &records[i], nil
		}
	}
	return nil, notFoundError("未找到对应客户（customerId=%s）", customerID)
}

// resolveRecordID accepts a vendor record id as is and scans for a business id.
func (s *customerService) resolveRecordID(ctx context.Context, customerID string) (string, error) {
	if IsRecordID(customerID) {
		return customerID, nil
	}
	rec, err := s.findByCustomerID(ctx, customerID)
	if err != nil {
		return "", err
	}
	return rec.RecordID, nil
}

func (s *customerService) Create(ctx context.Context, in *models.CustomerInput) (*WriteResult, error) {
	if err := requireTable(s.table, customerTableMissing); err != nil {
		return nil, err
	}

	shortName := in.ShortName.Text()
	if shortName == "" {
		shortName = in.Name.Text()
	}
	if shortName == "" {
		return nil, validationError("缺少 shortName 或 name")
	}

	f := models.CustomerField
	fields := fieldSet{}
	fields.setText(f.ShortName, shortName)
	fields[f.IsAnnual] = in.IsAnnual.Bool()
	fields.setText(f.CompanyName, in.CompanyName.Text())
	fields.setText(f.HQ, in.HQ.Text())
	fields.setText(f.CustomerType, in.CustomerType.Text())
	fields.setText(f.Level, in.Level.Text())
	fields.setText(f.CooperationStatus, in.CooperationStatus.Text())
	fields.setText(f.Industry, in.Industry.Text())

	if err := s.setOwner(ctx, fields, in); err != nil {
		return nil, err
	}

	payload := s.canonicalize(ctx, fields)
	s.logger.Info("Creating customer", zap.Any("fields", payload))

	rec, err := createOne(ctx, s.client, s.table, payload)
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}

	target := s.table
	return &WriteResult{
		RecordID: rec.RecordID,
		Target:   &target,
		Fields:   payload,
		Warnings: []string{},
		Data:     rec,
	}, nil
}

func (s *customerService) Update(ctx context.Context, customerID string, in *models.CustomerInput) (*WriteResult, error) {
	if err := requireTable(s.table, customerTableMissing); err != nil {
		return nil, err
	}

	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, validationError("缺少 customerId")
	}

	recordID, err := s.resolveRecordID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	f := models.CustomerField
	fields := fieldSet{}
	fields.setText(f.ShortName, in.ShortName.Text())
	fields.setText(f.CompanyName, in.CompanyName.Text())
	fields.setText(f.HQ, in.HQ.Text())
	fields.setAny(f.CustomerType, in.CustomerType.Interface())
	fields.setAny(f.Level, in.Level.Interface())
	fields.setAny(f.CooperationStatus, in.CooperationStatus.Interface())
	fields.setAny(f.Industry, in.Industry.Interface())
	if in.IsAnnual.Sent() {
		fields[f.IsAnnual] = in.IsAnnual.Bool()
	}

	if err := s.setOwner(ctx, fields, in); err != nil {
		return nil, err
	}

	payload := s.canonicalize(ctx, fields)
	s.logger.Info("Updating customer",
		zap.String("record_id", recordID),
		zap.Any("fields", payload))

	rec, err := s.client.UpdateRecord(ctx, s.table, recordID, payload)
	if err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}

	return &WriteResult{
		RecordID: recordID,
		Fields:   payload,
		Warnings: []string{},
		Data:     rec,
	}, nil
}

// setOwner writes the BD owner: an explicit user id wins, otherwise the name is
// resolved with the cross-table fallback.
func (s *customerService) setOwner(ctx context.Context, fields fieldSet, in *models.CustomerInput) error {
	label := models.CustomerField.BDOwner

	if userID := in.OwnerUserID.Text(); userID != "" {
		fields[label] = []feishu.PersonRef{{ID: userID}}
		return nil
	}

	name := in.OwnerName()
	if name == "" {
		return nil
	}
	value, err := s.persons.ResolveCustomerBD(ctx, name)
	if err != nil {
		return err
	}
	fields[label] = value
	return nil
}

// canonicalize rewrites labels to the table's actual column names. A failed
// field listing leaves the labels as they are.
func (s *customerService) canonicalize(ctx context.Context, fields fieldSet) feishu.Fields {
	m, err := s.fieldMaps.Get(ctx, s.table)
	if err != nil {
		s.logger.Warn("Writing customer with unverified column labels", zap.Error(err))
		return feishu.Fields(fields)
	}

	out := make(feishu.Fields, len(fields))
	for label, value := range fields {
		out[m.Canonical(label)] = value
	}
	return out
}
