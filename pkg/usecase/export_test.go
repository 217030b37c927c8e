package usecase

// Export unexported functions for testing
var (
	ImageCachedForTest = imageCached
)
