package handlers

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"
	"github.com/xeipuuv/gojsonschema"

	"github.com/reelforge/reelforge-api/analysis"
	"github.com/reelforge/reelforge-api/clients"
	"github.com/reelforge/reelforge-api/config"
	"github.com/reelforge/reelforge-api/errors"
	"github.com/reelforge/reelforge-api/log"
	"github.com/reelforge/reelforge-api/store"
)

// maxChunkSize bounds one uploaded chunk at 32 MiB.
const maxChunkSize = 32 << 20

// SaveChunk accepts one raw chunk of a chunked media upload. An optional
// X-Chunk-MD5 header is verified before the chunk is accepted.
func (d *EditHandlersCollection) SaveChunk() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
		mediaID := ps.ByName("id")
		chunkNum, err := strconv.Atoi(ps.ByName("num"))
		if err != nil || chunkNum < 0 {
			errors.WriteHTTPBadRequest(w, "Invalid chunk number", err)
			return
		}

		data, err := io.ReadAll(io.LimitReader(req.Body, maxChunkSize+1))
		if err != nil {
			errors.WriteHTTPInternalServerError(w, "Cannot read chunk", err)
			return
		}
		if len(data) == 0 {
			errors.WriteHTTPBadRequest(w, "Empty chunk", nil)
			return
		}
		if len(data) > maxChunkSize {
			errors.WriteHTTPBadRequest(w, "Chunk too large", fmt.Errorf("chunks are limited to %d bytes", maxChunkSize))
			return
		}

		if expected := req.Header.Get("X-Chunk-MD5"); expected != "" {
			sum := md5.Sum(data)
			if hex.EncodeToString(sum[:]) != expected {
				errors.WriteHTTPBadRequest(w, "Chunk checksum mismatch", nil)
				return
			}
		}

		if err := d.Fetcher.SaveChunk(mediaID, chunkNum, data); err != nil {
			errors.WriteHTTPInternalServerError(w, "Cannot save chunk", err)
			return
		}
		d.respondJSON(w, "", http.StatusOK, map[string]any{
			"media_id": mediaID,
			"chunk":    chunkNum,
			"size":     len(data),
		})
	}
}

type AssembleMediaRequest struct {
	TotalChunks int    `json:"total_chunks"`
	Filename    string `json:"filename"`
}

// AssembleMedia concatenates previously uploaded chunks into the final
// media file, verifies it decodes, and registers the media row.
func (d *EditHandlersCollection) AssembleMedia() httprouter.Handle {
	schema := inputSchemasCompiled["AssembleMedia"]

	return func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
		mediaID := ps.ByName("id")

		var assembleRequest AssembleMediaRequest
		if payload, err := io.ReadAll(req.Body); err != nil {
			errors.WriteHTTPInternalServerError(w, "Cannot read payload", err)
			return
		} else if result, err := schema.Validate(gojsonschema.NewBytesLoader(payload)); err != nil {
			errors.WriteHTTPInternalServerError(w, "Cannot validate payload", err)
			return
		} else if !result.Valid() {
			errors.WriteHTTPBadBodySchema("/api/media/assemble", w, result.Errors())
			return
		} else if err := json.Unmarshal(payload, &assembleRequest); err != nil {
			errors.WriteHTTPBadRequest(w, "Invalid request payload", err)
			return
		}

		requestID := config.RandomTrailer(8)
		log.AddContext(requestID, "media_id", mediaID)

		localPath, err := d.Fetcher.Assemble(mediaID, assembleRequest.TotalChunks, assembleRequest.Filename)
		if err != nil {
			errors.WriteHTTPError(w, "Cannot assemble media", err)
			return
		}

		info, err := d.Prober.ProbeFile(requestID, localPath)
		if err != nil {
			errors.WriteHTTPError(w, "Assembled media is not a valid video", err)
			return
		}

		if err := d.Store.Media.Insert(store.Media{ID: mediaID, URL: localPath, Status: "uploaded"}); err != nil {
			errors.WriteHTTPInternalServerError(w, "Cannot register media", err)
			return
		}
		if err := d.Store.Media.RecordProbe(mediaID, localPath, info); err != nil {
			errors.WriteHTTPInternalServerError(w, "Cannot register media", err)
			return
		}

		response := map[string]any{
			"media_id":         mediaID,
			"path":             localPath,
			"duration_seconds": info.Duration,
			"status":           "uploaded",
		}
		if sum, err := clients.FileMD5(localPath); err == nil {
			response["md5"] = sum
		}
		d.respondJSON(w, requestID, http.StatusOK, response)
	}
}

// AnalyzeMedia schedules the analysis passes for an ingested media and
// returns immediately.
func (d *EditHandlersCollection) AnalyzeMedia() httprouter.Handle {
	schema := inputSchemasCompiled["AnalyzeMedia"]

	return func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
		mediaID := ps.ByName("id")

		var analyzeRequest analysis.AnalyzeRequest
		if payload, err := io.ReadAll(req.Body); err != nil {
			errors.WriteHTTPInternalServerError(w, "Cannot read payload", err)
			return
		} else if len(payload) > 0 {
			if result, err := schema.Validate(gojsonschema.NewBytesLoader(payload)); err != nil {
				errors.WriteHTTPInternalServerError(w, "Cannot validate payload", err)
				return
			} else if !result.Valid() {
				errors.WriteHTTPBadBodySchema("/api/media/analyze", w, result.Errors())
				return
			} else if err := json.Unmarshal(payload, &analyzeRequest); err != nil {
				errors.WriteHTTPBadRequest(w, "Invalid request payload", err)
				return
			}
		}

		if _, err := d.Store.Media.Get(mediaID); err != nil {
			errors.WriteHTTPError(w, "Cannot fetch media", err)
			return
		}

		requestID := config.RandomTrailer(8)
		log.AddContext(requestID, "media_id", mediaID)

		if err := d.Store.Media.SetStatus(mediaID, "analyzing"); err != nil {
			errors.WriteHTTPInternalServerError(w, "Cannot update media", err)
			return
		}
		go func() {
			result, err := d.Analyzer.Analyze(context.Background(), requestID, mediaID, analyzeRequest)
			if err != nil {
				log.LogError(requestID, "media analysis failed", err, "media_id", mediaID)
				if serr := d.Store.Media.SetStatus(mediaID, "analysis_failed"); serr != nil {
					log.LogError(requestID, "error updating media status", serr)
				}
				return
			}
			d.Metrics.FrameCaptionResults.WithLabelValues("completed").Add(float64(result.Frames.Completed))
			d.Metrics.FrameCaptionResults.WithLabelValues("failed").Add(float64(result.Frames.Failed))
		}()

		d.respondJSON(w, requestID, http.StatusAccepted, map[string]any{
			"media_id":   mediaID,
			"status":     "analyzing",
			"request_id": requestID,
		})
	}
}

// GetMedia returns a media descriptor plus analysis artifact counts.
func (d *EditHandlersCollection) GetMedia() httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
		mediaID := ps.ByName("id")
		media, err := d.Store.Media.Get(mediaID)
		if err != nil {
			errors.WriteHTTPError(w, "Cannot fetch media", err)
			return
		}

		response := map[string]any{"media": media}

		if frameCount, err := d.Store.Frames.CountByMedia(mediaID); err == nil {
			response["frame_count"] = frameCount
		}
		if scenes, err := d.Store.Scenes.ListByMedia(mediaID); err == nil {
			response["scene_count"] = len(scenes)
		}
		if transcript, err := d.Store.Transcripts.Get(mediaID); err == nil {
			response["transcript_segments"] = transcript.SegmentCount
			response["transcript_language"] = transcript.Language
		}

		d.respondJSON(w, "", http.StatusOK, response)
	}
}
