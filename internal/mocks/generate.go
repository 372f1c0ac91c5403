// Package mocks provides gomock implementations of the core ports.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	mockRepo := mocks.NewMockJobRepository(ctrl)
//	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(job, nil)
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_repository_mock.go github.com/target/mmk-prompt-jobs/internal/core JobRepository

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=job_queue_mock.go github.com/target/mmk-prompt-jobs/internal/core JobQueue

// ProcessingBackend and ReportDeliverer share one file.
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=processing_mock.go github.com/target/mmk-prompt-jobs/internal/core ProcessingBackend,ReportDeliverer
