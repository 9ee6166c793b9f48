package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable. Violations are fatal at
// startup, before any transcript is processed.
func (c *Config) Validate() error {
	if err := c.validateStitching(); err != nil {
		return err
	}
	if err := c.validateExtraction(); err != nil {
		return err
	}
	if err := c.validateLinking(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStitching() error {
	if c.Stitching.MaxTokensPerSegment <= 0 {
		return errors.New("stitching.max_tokens_per_segment must be positive")
	}
	if c.Stitching.MaxSecondsPerSegment <= 0 {
		return errors.New("stitching.max_seconds_per_segment must be positive")
	}
	return nil
}

func (c *Config) validateExtraction() error {
	if len(c.Extraction.Labels) == 0 {
		return errors.New("extraction.labels must name at least one label")
	}
	return nil
}

func (c *Config) validateLinking() error {
	if c.Linking.AcceptThreshold < 0 || c.Linking.AcceptThreshold > 1 {
		return errors.New("linking.accept_threshold must be between 0 and 1")
	}
	if c.Linking.ReviewThreshold < 0 || c.Linking.ReviewThreshold > 1 {
		return errors.New("linking.review_threshold must be between 0 and 1")
	}
	if c.Linking.ReviewThreshold < c.Linking.AcceptThreshold {
		return fmt.Errorf("linking.review_threshold %.2f must not be below linking.accept_threshold %.2f",
			c.Linking.ReviewThreshold, c.Linking.AcceptThreshold)
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxAttempts > 10 {
		return errors.New("retry.max_attempts above 10 would hammer the remote API")
	}
	if c.Retry.JitterFactor > 1 {
		return errors.New("retry.jitter_factor must be at most 1")
	}
	return nil
}
