// Package export produces owner-facing xlsx reports of reservation history.
package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"kerbside/internal/models"
)

// Repository provides the report data.
type Repository interface {
	GetSpace(ctx context.Context, id int64) (*models.Space, error)
	ListReservationsBySpace(ctx context.Context, spaceID int64) ([]models.Reservation, error)
}

// Reporter writes reservation history reports.
type Reporter struct {
	repo Repository
	loc  *time.Location
}

func NewReporter(repo Repository, loc *time.Location) *Reporter {
	if loc == nil {
		loc = time.UTC
	}
	return &Reporter{repo: repo, loc: loc}
}

var reportColumns = []string{
	"Reservation", "Requester", "Start", "End", "Status", "Payment", "Amount", "Created",
}

// SpaceReservations writes the full reservation history of a space as an
// xlsx workbook.
func (rp *Reporter) SpaceReservations(ctx context.Context, spaceID int64, w io.Writer) error {
	space, err := rp.repo.GetSpace(ctx, spaceID)
	if err != nil {
		return fmt.Errorf("get space: %w", err)
	}

	reservations, err := rp.repo.ListReservationsBySpace(ctx, spaceID)
	if err != nil {
		return fmt.Errorf("list reservations: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := sheetName(space.Address)
	f.SetSheetName("Sheet1", sheet)

	for i, col := range reportColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		startCell, _ := excelize.CoordinatesToCellName(1, 1)
		endCell, _ := excelize.CoordinatesToCellName(len(reportColumns), 1)
		_ = f.SetCellStyle(sheet, startCell, endCell, style)
	}

	for i := range reservations {
		r := &reservations[i]
		row := []interface{}{
			r.UUID,
			r.RequesterID,
			r.StartTime.In(rp.loc).Format("2006-01-02 15:04"),
			r.EndTime.In(rp.loc).Format("2006-01-02 15:04"),
			string(r.Status),
			string(r.PaymentStatus),
			r.TotalAmount,
			r.CreatedAt.In(rp.loc).Format("2006-01-02 15:04"),
		}
		for j, val := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return err
			}
		}
	}

	return f.Write(w)
}

// sheetName truncates to Excel's 31 character sheet name limit.
func sheetName(name string) string {
	if name == "" {
		return "Reservations"
	}
	if len(name) > 31 {
		return name[:31]
	}
	return name
}
