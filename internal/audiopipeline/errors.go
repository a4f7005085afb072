package audiopipeline

import (
	"github.com/pdeljanov/ayane-go/internal/errors"
)

// ComponentAudioPipeline is the component tag attached to every
// EnhancedError raised from this package.
const ComponentAudioPipeline = "audiopipeline"

var (
	ErrAlreadyLinked = errors.New(nil).
		Component(ComponentAudioPipeline).
		Category(errors.CategoryConflict).
		Context("resource", "port").
		Build()

	ErrNotLinked = errors.New(nil).
		Component(ComponentAudioPipeline).
		Category(errors.CategoryState).
		Context("resource", "port").
		Build()

	ErrInvalidFormat = errors.New(nil).
		Component(ComponentAudioPipeline).
		Category(errors.CategoryValidation).
		Context("resource", "buffer_format").
		Build()

	ErrBufferQueueFull = errors.New(nil).
		Component(ComponentAudioPipeline).
		Category(errors.CategoryResource).
		Context("resource", "buffer_queue").
		Build()

	ErrBufferQueueEmpty = errors.New(nil).
		Component(ComponentAudioPipeline).
		Category(errors.CategoryResource).
		Context("resource", "buffer_queue").
		Build()

	ErrPullCancelled = errors.New(nil).
		Component(ComponentAudioPipeline).
		Category(errors.CategoryCancelled).
		Context("operation", "pull").
		Build()

	ErrNotAsynchronous = errors.New(nil).
		Component(ComponentAudioPipeline).
		Category(errors.CategoryUnsupported).
		Context("operation", "try_pull").
		Build()

	ErrUnsupportedFormat = errors.New(nil).
		Component(ComponentAudioPipeline).
		Category(errors.CategoryFormat).
		Context("operation", "reconfigure_input_format").
		Build()

	ErrInvalidStageTransition = errors.New(nil).
		Component(ComponentAudioPipeline).
		Category(errors.CategoryState).
		Context("resource", "stage").
		Build()

	ErrPortNotFound = errors.New(nil).
		Component(ComponentAudioPipeline).
		Category(errors.CategoryNotFound).
		Context("resource", "port").
		Build()

	ErrClockPeriodOutOfRange = errors.New(nil).
		Component(ComponentAudioPipeline).
		Category(errors.CategoryValidation).
		Context("resource", "clock_period").
		Build()
)
