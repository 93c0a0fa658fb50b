// Package imageupload はメニュー画像のアップロード要求を検証し、ストレージへ転送する。
//
// 検証は所有者確認、ファイル数、MIMEタイプ、拡張子、サイズの順に行い、
// 最初に失敗した検証がレスポンスを決める。すべてのファイルが検証を通過するまで
// 1件もアップロードしない。
package imageupload

import (
	"fmt"
	"io"
	"mime/multipart"
	"slices"
	"strings"

	"github.com/nao1215/menum/pkg/apperr"
)

const (
	// MaxFileCount は1回の要求で受け付けるファイル数の上限。
	MaxFileCount = 5
	// MaxFileSize は1ファイルあたりのサイズ上限（5MiB）。
	MaxFileSize = 5 * 1024 * 1024
)

// allowedMIMETypes は受け付けるMIMEタイプ。表示順を固定するためスライスで持つ。
var allowedMIMETypes = []string{"image/jpeg", "image/png", "image/webp"}

// allowedExtensions は受け付ける拡張子。
var allowedExtensions = []string{"jpg", "jpeg", "png", "webp"}

// mimeExtensions はファイル名に拡張子が無い場合に使うMIMEタイプからの対応表。
var mimeExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// Candidate はアップロード要求に含まれる1ファイル。
type Candidate struct {
	// Filename は利用者が申告したファイル名。空の場合がある。
	Filename string
	// ContentType は利用者が申告したContent-Type。
	ContentType string
	// Size はマルチパートヘッダーから得たサイズ。
	Size int64
	// Open はファイル内容を読み出す。
	Open func() (io.ReadCloser, error)
}

// Validated は検証を通過したファイル。
type Validated struct {
	// Label はログやエラーメッセージに使う名前。
	Label string
	// Data はファイル内容。
	Data []byte
	// Extension は保存に使う拡張子（ドットなし、小文字）。
	Extension string
}

// FromMultipart はマルチパートのファイルヘッダーを Candidate に変換する。
func FromMultipart(headers []*multipart.FileHeader) []Candidate {
	candidates := make([]Candidate, 0, len(headers))
	for _, fh := range headers {
		candidates = append(candidates, Candidate{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}
	return candidates
}

// Validate はファイル数と各ファイルを提出順に検証する。
// 1件でも失敗した場合は apperr.KindBadRequest のエラーを返し、結果は返さない。
func Validate(files []Candidate) ([]Validated, error) {
	if len(files) == 0 {
		return nil, apperr.New(apperr.KindBadRequest, "No files provided")
	}
	if len(files) > MaxFileCount {
		return nil, apperr.New(apperr.KindBadRequest, fmt.Sprintf("Too many files. Maximum allowed: %d", MaxFileCount))
	}

	validated := make([]Validated, 0, len(files))
	for i, f := range files {
		v, err := validateFile(i, f)
		if err != nil {
			return nil, err
		}
		validated = append(validated, v)
	}
	return validated, nil
}

// validateFile はMIMEタイプ、拡張子、サイズの順に1ファイルを検証する。
func validateFile(index int, f Candidate) (Validated, error) {
	label := fileLabel(index, f.Filename)

	if !slices.Contains(allowedMIMETypes, f.ContentType) {
		return Validated{}, apperr.New(apperr.KindBadRequest, fmt.Sprintf(
			"Invalid file type for '%s': %s. Allowed: %s",
			label, f.ContentType, strings.Join(allowedMIMETypes, ", ")))
	}

	ext, ok := extensionOf(f.Filename, f.ContentType)
	if !ok || !slices.Contains(allowedExtensions, ext) {
		return Validated{}, apperr.New(apperr.KindBadRequest, fmt.Sprintf(
			"Invalid file extension for '%s'. Allowed: %s",
			label, strings.Join(allowedExtensions, ", ")))
	}

	data, err := readLimited(f)
	if err != nil {
		return Validated{}, apperr.Wrap(apperr.KindBadRequest, fmt.Sprintf("Failed to read file '%s'", label), err)
	}
	if len(data) > MaxFileSize {
		size := max(f.Size, int64(len(data)))
		return Validated{}, apperr.New(apperr.KindBadRequest, fmt.Sprintf(
			"File '%s' too large: %.2fMB. Maximum: %dMB",
			label, float64(size)/(1024*1024), MaxFileSize/(1024*1024)))
	}
	if len(data) == 0 {
		return Validated{}, apperr.New(apperr.KindBadRequest, fmt.Sprintf("File '%s' is empty", label))
	}

	return Validated{Label: label, Data: data, Extension: ext}, nil
}

// fileLabel はファイル名、無ければ file[i] を返す。
func fileLabel(index int, filename string) string {
	if filename != "" {
		return filename
	}
	return fmt.Sprintf("file[%d]", index)
}

// extensionOf はファイル名の最後のドット以降を拡張子として返す。
// ファイル名にドットが無い場合はMIMEタイプから推定する。
func extensionOf(filename, mimeType string) (string, bool) {
	if i := strings.LastIndex(filename, "."); i >= 0 {
		ext := strings.ToLower(filename[i+1:])
		return ext, ext != ""
	}
	ext, ok := mimeExtensions[mimeType]
	return ext, ok
}

// readLimited はファイル内容を上限+1バイトまで読み出す。
// 上限を超えたかどうかは戻り値の長さで判定できる。
func readLimited(f Candidate) ([]byte, error) {
	if f.Open == nil {
		return nil, nil
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, MaxFileSize+1))
}
