package validation

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Константы валидации
const (
	MinRating                   = 1
	MaxRating                   = 5
	MinDurationHours            = 0.5
	MaxDurationHours            = 12.0
	MaxAddressLength            = 500
	MaxInstructionsLength       = 2000
	MaxCancellationReasonLength = 500
	MaxReviewCommentLength      = 2000
	MinDayOfWeek                = 0
	MaxDayOfWeek                = 6
)

// DateFormat — формат календарной даты бронирования.
const DateFormat = "2006-01-02"

// ValidateLength проверяет длину строки в рунах.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateRating проверяет оценку отзыва.
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return fmt.Errorf("рейтинг должен быть от %d до %d", MinRating, MaxRating)
	}
	return nil
}

// ValidateDurationHours проверяет длительность бронирования.
func ValidateDurationHours(hours float64) error {
	if hours <= 0 {
		return fmt.Errorf("длительность должна быть положительной")
	}
	if hours < MinDurationHours || hours > MaxDurationHours {
		return fmt.Errorf("длительность должна быть от %.1f до %.0f часов", MinDurationHours, MaxDurationHours)
	}
	return nil
}

// ParseDate разбирает календарную дату формата ГГГГ-ММ-ДД.
func ParseDate(value string) (time.Time, error) {
	date, err := time.Parse(DateFormat, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("дата должна быть в формате ГГГГ-ММ-ДД")
	}
	return date, nil
}

// ValidateBookingDate проверяет, что дата не в прошлом.
func ValidateBookingDate(date time.Time) error {
	today := time.Now().Truncate(24 * time.Hour)
	if date.Before(today) {
		return fmt.Errorf("дата бронирования не может быть в прошлом")
	}
	return nil
}

// ValidateDayOfWeek проверяет день недели (0 — воскресенье).
func ValidateDayOfWeek(day int) error {
	if day < MinDayOfWeek || day > MaxDayOfWeek {
		return fmt.Errorf("день недели должен быть от %d до %d", MinDayOfWeek, MaxDayOfWeek)
	}
	return nil
}

// ValidateAddress проверяет адрес оказания услуги.
func ValidateAddress(address string) error {
	if err := ValidateNonEmpty("адрес", address); err != nil {
		return err
	}
	return ValidateLength("адрес", address, 0, MaxAddressLength)
}

// ValidateOptionalText проверяет необязательное текстовое поле.
func ValidateOptionalText(fieldName string, value *string, max int) error {
	if value == nil {
		return nil
	}
	return ValidateLength(fieldName, *value, 0, max)
}
