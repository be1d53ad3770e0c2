package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/bddaily/bddaily-server/pkg/feishu"
	"github.com/bddaily/bddaily-server/pkg/jsonutil"
	"github.com/bddaily/bddaily-server/pkg/mapping"
	"github.com/bddaily/bddaily-server/pkg/models"
)

// trailingMonthPattern picks the month out of "2024.05" or "5".
var trailingMonthPattern = regexp.MustCompile(`(?:^|\.)(\d{1,2})$`)

// DealService provides operations on the deal (立项) table.
type DealService interface {
	// List returns deals. keyword matches the project name; projectID, when set,
	// must equal the deal's project id.
	List(ctx context.Context, keyword, projectID string) ([]models.Deal, error)

	// Get returns a deal by its business deal id (or record id fallback).
	Get(ctx context.Context, dealID string) (*models.Deal, error)

	// Create writes a new deal.
	Create(ctx context.Context, in *models.DealInput) (*WriteResult, error)

	// Update writes the non-blank fields of in. The deal id column is never written.
	Update(ctx context.Context, dealID string, in *models.DealInput) (*WriteResult, error)
}

type dealService struct {
	client   BitableClient
	projects ProjectService
	table    feishu.Table
	scanSize int
	dates    mapping.DateThresholds
	logger   *zap.Logger
}

// NewDealService creates a new deal service. projects resolves display names
// for deals whose own project name column is empty.
func NewDealService(
	client BitableClient,
	projects ProjectService,
	tables Tables,
	scanSize int,
	dates mapping.DateThresholds,
	logger *zap.Logger,
) DealService {
	return &dealService{
		client:   client,
		projects: projects,
		table:    tables.Deal,
		scanSize: scanSize,
		dates:    dates,
		logger:   logger.Named("deals"),
	}
}

var _ DealService = (*dealService)(nil)

// MapDeal flattens a deal row.
func MapDeal(rec feishu.Record, dates mapping.DateThresholds) models.Deal {
	cells := mapping.CellsOf(rec)
	f := models.DealField

	isFinished := cells.Coalesce(f.IsFinished, f.IsFinishedAlt, "isFinished")
	if isFinished.IsNull() {
		isFinished = feishu.String("")
	}

	return models.Deal{
		RecordID:            rec.RecordID,
		SerialNo:            cells.Text(f.SerialNo),
		DealID:              dealIdentifier(rec),
		ProjectID:           cells.Text(f.ProjectID, "projectId"),
		CustomerID:          cells.Text(f.CustomerID, "customerId"),
		ProjectName:         cells.Text(f.ProjectName, "projectName"),
		Month:               strings.TrimSpace(mapping.NormalizeAny(cells.Coalesce(f.Month, "month"))),
		StartDate:           dates.Format(cells.Coalesce(f.StartDate, "startDate")),
		EndDate:             dates.Format(cells.Coalesce(f.EndDate, "endDate")),
		IsFinished:          isFinished,
		SignCompany:         cells.Text(f.SignCompany, f.SignCompanyAlt, "signCompany"),
		IncomeWithTax:       optionalNumber(cells.Coalesce(f.IncomeWithTax, "incomeWithTax")),
		IncomeWithoutTax:    optionalNumber(cells.Coalesce(f.IncomeWithoutTax, "incomeWithoutTax")),
		EstimatedCost:       optionalNumber(cells.Coalesce(f.EstimatedCost, "estimatedCost")),
		PaidThirdPartyCost:  optionalNumber(cells.Coalesce(f.PaidThirdPartyCost, "paidThirdPartyCost")),
		GrossProfit:         optionalNumber(cells.Coalesce(f.GrossProfit, "grossProfit")),
		GrossMargin:         optionalNumber(cells.Coalesce(f.GrossMargin, "grossMargin")),
		FirstPaymentDate:    dates.Format(cells.Coalesce(f.FirstPaymentDate, "firstPaymentDate")),
		FinalPaymentDate:    dates.Format(cells.Coalesce(f.FinalPaymentDate, "finalPaymentDate")),
		ReceivedAmount:      optionalNumber(cells.Coalesce(f.ReceivedAmount, "receivedAmount")),
		RemainingReceivable: optionalNumber(cells.Coalesce(f.RemainingReceivable, "remainingReceivable")),
	}
}

func optionalNumber(v feishu.Value) *float64 {
	n, ok := mapping.OptionalNumber(v)
	if !ok {
		return nil
	}
	return &n
}

func dealIdentifier(rec feishu.Record) string {
	return mapping.Identifier(rec, models.DealField.DealID, "dealId")
}

func (s *dealService) List(ctx context.Context, keyword, projectID string) ([]models.Deal, error) {
	if err := requireTable(s.table, dealTableMissing); err != nil {
		return nil, err
	}

	records, err := s.client.ListRecords(ctx, s.table, s.scanSize)
	if err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}

	deals := make([]models.Deal, len(records))
	for i, rec := range records {
		deals[i] = MapDeal(rec, s.dates)
	}
	s.fillProjectNames(ctx, deals)

	keyword = strings.ToLower(strings.TrimSpace(keyword))
	projectID = strings.TrimSpace(projectID)

	filtered := make([]models.Deal, 0, len(deals))
	for _, d := range deals {
		if keyword != "" && !strings.Contains(strings.ToLower(d.ProjectName), keyword) {
			continue
		}
		if projectID != "" && d.ProjectID != projectID {
			continue
		}
		filtered = append(filtered, d)
	}
	return filtered, nil
}

// fillProjectNames copies the project name from the project table into deals
// that have none. A dangling project id leaves the name empty; a failing
// project lookup is logged and ignored.
func (s *dealService) fillProjectNames(ctx context.Context, deals []models.Deal) {
	missing := false
	for _, d := range deals {
		if d.ProjectName == "" && d.ProjectID != "" {
			missing = true
			break
		}
	}
	if !missing || s.projects == nil {
		return
	}

	projects, err := s.projects.List(ctx, "", "")
	if err != nil {
		s.logger.Warn("Failed to load project names for deals", zap.Error(err))
		return
	}

	names := make(map[string]string, len(projects))
	for _, p := range projects {
		if _, ok := names[p.ProjectID]; !ok {
			names[p.ProjectID] = p.ProjectName
		}
	}
	for i := range deals {
		if deals[i].ProjectName == "" {
			deals[i].ProjectName = names[deals[i].ProjectID]
		}
	}
}

func (s *dealService) Get(ctx context.Context, dealID string) (*models.Deal, error) {
	if err := requireTable(s.table, dealTableMissing); err != nil {
		return nil, err
	}

	rec, err := s.find(ctx, dealID)
	if err != nil {
		return nil, err
	}
	deals := []models.Deal{MapDeal(*rec, s.dates)}
	s.fillProjectNames(ctx, deals)
	return &deals[0], nil
}

func (s *dealService) find(ctx context.Context, dealID string) (*feishu.Record, error) {
	dealID = strings.TrimSpace(dealID)

	records, err := s.client.ListRecords(ctx, s.table, s.scanSize)
	if err != nil {
		return nil, fmt.Errorf("scan deals: %w", err)
	}
	for i := range records {
		if dealIdentifier(records[i]) == dealID {
			return &records[i], nil
		}
	}
	return nil, notFoundError("deal not found")
}

func (s *dealService) Create(ctx context.Context, in *models.DealInput) (*WriteResult, error) {
	if err := requireTable(s.table, dealTableMissing); err != nil {
		return nil, err
	}

	dealID := in.DealID.Text()
	if dealID == "" {
		return nil, validationError("missing dealId")
	}

	fields := fieldSet{}
	fields.setText(models.DealField.DealID, dealID)
	buildDealFields(fields, in)

	payload := feishu.Fields(fields)
	s.logger.Info("Creating deal", zap.Any("fields", payload))

	rec, err := createOne(ctx, s.client, s.table, payload)
	if err != nil {
		return nil, fmt.Errorf("create deal: %w", err)
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

func (s *dealService) Update(ctx context.Context, dealID string, in *models.DealInput) (*WriteResult, error) {
	if err := requireTable(s.table, dealTableMissing); err != nil {
		return nil, err
	}

	rec, err := s.find(ctx, dealID)
	if err != nil {
		return nil, err
	}

	fields := fieldSet{}
	buildDealFields(fields, in)

	payload := feishu.Fields(fields)
	s.logger.Info("Updating deal",
		zap.String("record_id", rec.RecordID),
		zap.Any("fields", payload))

	updated, err := s.client.UpdateRecord(ctx, s.table, rec.RecordID, payload)
	if err != nil {
		return nil, fmt.Errorf("update deal: %w", err)
	}

	return &WriteResult{
		RecordID: rec.RecordID,
		Fields:   payload,
		Warnings: []string{},
		Data:     updated,
	}, nil
}

// buildDealFields fills every writable column except the deal id.
func buildDealFields(fields fieldSet, in *models.DealInput) {
	f := models.DealField

	fields.setText(f.ProjectID, in.ProjectID.Text())
	fields.setText(f.CustomerID, in.CustomerID.Text())
	if month, ok := NormalizeMonth(in.Month.Text()); ok {
		fields[f.Month] = month
	}
	fields.setAny(f.StartDate, in.StartDate.Interface())
	fields.setAny(f.EndDate, in.EndDate.Interface())
	fields.setAny(f.IsFinished, in.IsFinished.Interface())
	fields.setAny(f.SignCompany, in.SignCompany.Interface())

	setNumber(fields, f.IncomeWithTax, in.IncomeWithTax)
	setNumber(fields, f.IncomeWithoutTax, in.IncomeWithoutTax)
	setNumber(fields, f.EstimatedCost, in.EstimatedCost)
	setNumber(fields, f.PaidThirdPartyCost, in.PaidThirdPartyCost)
	setNumber(fields, f.ReceivedAmount, in.ReceivedAmount)
	setNumber(fields, f.PaidThirdPartyCost, in.ThirdPartyCost)
	setNumber(fields, f.GrossProfit, in.GrossProfit)
	setNumber(fields, f.GrossMargin, in.GrossMargin)
	setNumber(fields, f.RemainingReceivable, in.RemainingReceivable)

	fields.setAny(f.FirstPaymentDate, in.FirstPaymentDate.Interface())
	fields.setAny(f.FinalPaymentDate, in.FinalPaymentDate.Interface())
}

// setNumber writes v coerced with Number() semantics. Blank and non-numeric
// values are dropped.
func setNumber(fields fieldSet, label string, v jsonutil.Value) {
	if v.IsBlank() {
		return
	}
	if n, ok := v.Number(); ok {
		fields[label] = n
	}
}

// NormalizeMonth reads the month of a deal. A trailing one or two digit month
// after a dot (or the whole string) becomes a number; anything else that is
// not numeric stays text. Blank input reports false.
func NormalizeMonth(raw string) (any, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, false
	}

	candidate := s
	if m := trailingMonthPattern.FindStringSubmatch(s); m != nil {
		candidate = m[1]
	}
	if n, ok := jsonutil.ParseNumber(candidate); ok {
		return n, true
	}
	return s, true
}
