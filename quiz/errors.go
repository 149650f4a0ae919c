package quiz

import "errors"

// ErrEmptyDataset is returned by Load when no record in the pool is
// eligible for quizzing.
var ErrEmptyDataset = errors.New("no eligible memory records to quiz on")
