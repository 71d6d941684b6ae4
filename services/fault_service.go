package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/line-rescue/line-rescue-api/models"
	"gorm.io/gorm"
)

// ErrFaultNotFound is returned when no fault exists for the given identifier
var ErrFaultNotFound = errors.New("fault not found")

// ErrFaultNotPending is returned when accepting a fault that has already
// been taken or resolved
var ErrFaultNotPending = errors.New("fault is not pending")

// CreateFaultInput carries the caller-supplied fields of a new fault.
// Identifier, OTP, timestamp and status are synthesized by the store.
type CreateFaultInput struct {
	Location    models.Location
	Severity    string
	Description string
}

// FaultService is the data-access layer for fault records. Each call is
// independent and stateless; there is no local mutable shared state.
//
// Failures are returned as errors rather than collapsed into empty results,
// so callers can tell "no faults" apart from "fetch failed". HTTP handlers
// translate them into user-facing responses and log the cause.
type FaultService struct {
	db *gorm.DB
}

var faultServiceInstance *FaultService

// NewFaultService creates a fault service over the given database
func NewFaultService(db *gorm.DB) *FaultService {
	return &FaultService{db: db}
}

// InitFaultService initializes the global fault service instance
func InitFaultService(db *gorm.DB) *FaultService {
	faultServiceInstance = NewFaultService(db)
	return faultServiceInstance
}

// GetFaultService returns the initialized fault service instance
func GetFaultService() *FaultService {
	return faultServiceInstance
}

// SetFaultService sets the fault service instance (primarily for testing)
func SetFaultService(svc *FaultService) {
	faultServiceInstance = svc
}

// List fetches fault records ordered by reportedAt descending (newest
// first). severity optionally narrows the result to one severity level.
func (s *FaultService) List(severity string) ([]models.Fault, error) {
	query := s.db.Order("reported_at DESC")
	if severity != "" {
		query = query.Where("severity = ?", severity)
	}

	var faults []models.Fault
	if err := query.Find(&faults).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch faults: %w", err)
	}
	return faults, nil
}

// Get fetches a single fault by identifier
func (s *FaultService) Get(id string) (*models.Fault, error) {
	var fault models.Fault
	if err := s.db.Where("id = ?", id).First(&fault).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFaultNotFound
		}
		return nil, fmt.Errorf("failed to fetch fault: %w", err)
	}
	return &fault, nil
}

// Create synthesizes the OTP and creation timestamp, persists the fault
// with status pending, and returns the record with its assigned identifier
func (s *FaultService) Create(input CreateFaultInput) (*models.Fault, error) {
	otp, err := models.GenerateOTP()
	if err != nil {
		return nil, err
	}

	fault := models.Fault{
		Location:    input.Location,
		Severity:    input.Severity,
		Description: input.Description,
		OTP:         otp,
		ReportedAt:  time.Now().UTC(),
		Status:      models.StatusPending,
	}

	if err := s.db.Create(&fault).Error; err != nil {
		return nil, fmt.Errorf("failed to create fault: %w", err)
	}
	return &fault, nil
}

// UpdateStatus writes a new status (and assignee, when provided) to an
// existing fault. No transition table is enforced: any status may move to
// any other.
func (s *FaultService) UpdateStatus(id, status string, assignedTo *string) (*models.Fault, error) {
	updates := map[string]interface{}{"status": status}
	if assignedTo != nil {
		updates["assigned_to"] = *assignedTo
	}

	result := s.db.Model(&models.Fault{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update fault status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrFaultNotFound
	}

	return s.Get(id)
}

// Accept moves a pending fault to in-progress and assigns it to the given
// user. The status check and the write happen in one statement so two
// linemen cannot both take the same job.
func (s *FaultService) Accept(id, userID string) (*models.Fault, error) {
	result := s.db.Model(&models.Fault{}).
		Where("id = ? AND status = ?", id, models.StatusPending).
		Updates(map[string]interface{}{
			"status":      models.StatusInProgress,
			"assigned_to": userID,
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to accept fault: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		// Distinguish a missing fault from one that is no longer pending
		if _, err := s.Get(id); err != nil {
			return nil, err
		}
		return nil, ErrFaultNotPending
	}

	return s.Get(id)
}

// AttachPhoto records the storage key of an uploaded site photo on a fault
func (s *FaultService) AttachPhoto(id, photoKey string) (*models.Fault, error) {
	result := s.db.Model(&models.Fault{}).Where("id = ?", id).Update("photo_s3_key", photoKey)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to attach photo: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrFaultNotFound
	}
	return s.Get(id)
}
