package util

import "errors"

var (
	ErrEmailRegistered    = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrAlreadyEvaluated   = errors.New("submission already evaluated")
	ErrNoMatchingKey      = errors.New("no answer key found for this exam, teacher must upload one first")
	ErrEvaluationService  = errors.New("evaluation service failed")
	ErrNoFilesUploaded    = errors.New("no files uploaded")
	ErrFileTooLarge       = errors.New("file exceeds the maximum allowed size")
	ErrInvalidFileType    = errors.New("invalid file type, only images and PDFs are accepted")
)
