package repository

import (
	"ratingd/internal/domain/season"
	"ratingd/pkg/fault"
)

// Not-found constructors shared by the store implementations.

func errMemberNotFound(id string) error {
	return fault.New(fault.NotFound, "member %s not found", id)
}

func errRecordNotFound(id string) error {
	return fault.New(fault.NotFound, "contest record %s not found", id)
}

func errStatNotFound(memberID string, p season.Period) error {
	return fault.New(fault.NotFound, "practice stat %s/%s not found", memberID, p)
}

func errSnapshotNotFound(memberID string, p season.Period) error {
	return fault.New(fault.NotFound, "snapshot %s/%s not found", memberID, p)
}

func errSeasonUnset() error {
	return fault.New(fault.NotFound, "current season is not configured")
}
