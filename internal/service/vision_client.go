package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"thoub/internal/model"

	"github.com/rs/zerolog"
)

// CaptureImage is one uploaded photo forwarded to the vision service.
type CaptureImage struct {
	Filename string
	Reader   io.Reader
}

// CaptureInput is the set of photos for one measurement capture. Front
// and profile are required by the vision service; side is optional.
type CaptureInput struct {
	Front   CaptureImage
	Side    *CaptureImage
	Profile CaptureImage
}

// MeasureResult is the vision service's response to a capture: the four
// body metrics plus durable ids for the stored images.
type MeasureResult struct {
	ThobeLength    float64
	Chest          float64
	Sleeve         float64
	Shoulder       float64
	FrontImageID   string
	SideImageID    *string
	ProfileImageID string
}

// VisionClient talks to the external measurement/try-on service. The
// models behind it are opaque to this codebase.
type VisionClient interface {
	Measure(ctx context.Context, in CaptureInput, heightCm float64, fitType string) (*MeasureResult, error)
	TryOn(ctx context.Context, profileImageID string, cfg model.StyleConfig) (string, error)
}

type visionClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  zerolog.Logger
}

func NewVisionClient(baseURL, apiKey string, timeout time.Duration, logger zerolog.Logger) VisionClient {
	return &visionClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("service", "VisionClient").Logger(),
	}
}

type measureResponse struct {
	Measurements struct {
		ThobeLength        float64 `json:"thobe_length"`
		ChestCircumference float64 `json:"chest_circumference"`
		SleeveLength       float64 `json:"sleeve_length"`
		ShoulderWidth      float64 `json:"shoulder_width"`
	} `json:"measurements"`
	ImageIDs struct {
		Front   string  `json:"front"`
		Side    *string `json:"side"`
		Profile string  `json:"profile"`
	} `json:"image_ids"`
}

func (c *visionClient) Measure(ctx context.Context, in CaptureInput, heightCm float64, fitType string) (*MeasureResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	addFile := func(field string, img CaptureImage) error {
		fw, err := mw.CreateFormFile(field, img.Filename)
		if err != nil {
			return err
		}
		_, err = io.Copy(fw, img.Reader)
		return err
	}
	if err := addFile("front_image", in.Front); err != nil {
		return nil, fmt.Errorf("writing front image: %w", err)
	}
	if in.Side != nil {
		if err := addFile("side_image", *in.Side); err != nil {
			return nil, fmt.Errorf("writing side image: %w", err)
		}
	}
	if err := addFile("profile_image", in.Profile); err != nil {
		return nil, fmt.Errorf("writing profile image: %w", err)
	}
	if err := mw.WriteField("height_cm", strconv.FormatFloat(heightCm, 'f', -1, 64)); err != nil {
		return nil, fmt.Errorf("writing height field: %w", err)
	}
	if err := mw.WriteField("fit_type", fitType); err != nil {
		return nil, fmt.Errorf("writing fit type field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/measure", &buf)
	if err != nil {
		return nil, fmt.Errorf("creating measure request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Thoub-API-Key", c.apiKey)

	var resp measureResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return &MeasureResult{
		ThobeLength:    resp.Measurements.ThobeLength,
		Chest:          resp.Measurements.ChestCircumference,
		Sleeve:         resp.Measurements.SleeveLength,
		Shoulder:       resp.Measurements.ShoulderWidth,
		FrontImageID:   resp.ImageIDs.Front,
		SideImageID:    resp.ImageIDs.Side,
		ProfileImageID: resp.ImageIDs.Profile,
	}, nil
}

type tryOnResponse struct {
	ImageURL string `json:"image_url"`
}

func (c *visionClient) TryOn(ctx context.Context, profileImageID string, cfg model.StyleConfig) (string, error) {
	form := url.Values{}
	form.Set("profile_image_id", profileImageID)
	form.Set("texture_id", cfg.Fabric)
	form.Set("pattern_id", cfg.Pattern)
	form.Set("style_config", cfg.Style)
	form.Set("closure_type", cfg.Closure)
	form.Set("has_pocket", strconv.FormatBool(cfg.Pocket))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/try-on", bytes.NewBufferString(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating try-on request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Thoub-API-Key", c.apiKey)

	var resp tryOnResponse
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	if resp.ImageURL == "" {
		return "", fmt.Errorf("vision service returned no image URL")
	}
	return resp.ImageURL, nil
}

func (c *visionClient) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling vision service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			c.logger.Warn().Err(readErr).Int("status_code", resp.StatusCode).Msg("Failed to read error body from vision service")
			return fmt.Errorf("vision service returned status %d", resp.StatusCode)
		}
		c.logger.Error().
			Int("status_code", resp.StatusCode).
			Str("error_body", string(bodyBytes)).
			Msg("Vision service returned error")
		return fmt.Errorf("vision service returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding vision service response: %w", err)
	}
	return nil
}
