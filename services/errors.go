package services

import "errors"

// Sentinel errors returned by the reconciler and the analytics aggregator.
// The messages are the stable user-facing strings; anything more detailed
// (actual persistence errors in particular) is logged server-side only.
var (
	ErrUnauthorized      = errors.New("Unauthorized.")
	ErrUnauthenticated   = errors.New("Unauthenticated.")
	ErrCaseNotFound      = errors.New("Case not found or unauthorized.")
	ErrImageNotFound     = errors.New("Image not found.")
	ErrDetectionNotFound = errors.New("Detection not found.")
	ErrSaveFailed        = errors.New("Failed to save detections.")
	ErrAnalyticsFailed   = errors.New("Failed to compute analytics.")
	ErrInvalidChangeSet  = errors.New("Invalid change-set.")
	ErrInvalidTransition = errors.New("Invalid case status transition.")
)
