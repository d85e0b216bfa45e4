package templates

import (
	"context"

	"go.uber.org/zap"
)

// Default template set, inserted on first boot so a fresh install can issue
// certificates immediately. Element classes (title, student-name, course-name,
// date, authority, signature) are the identifiers the live editor targets.
var defaultTemplates = []Template{
	{
		Name:        "Classic Blue",
		Description: "Elegant blue borders with gold accents and professional typography",
		HTMLContent: `<!DOCTYPE html>
<html>
<head>
<style>
@page { size: A4 landscape; margin: 0; }
body { margin: 0; font-family: Georgia, serif; color: #1a2b4a; }
.certificate { width: 297mm; height: 210mm; box-sizing: border-box; padding: 18mm; border: 10px double #1a3a6b; text-align: center; position: relative; }
.title { font-size: 40px; letter-spacing: 4px; margin-top: 14mm; color: #1a3a6b; }
.subtitle { font-size: 18px; letter-spacing: 2px; color: #b8860b; }
.intro { margin-top: 12mm; font-size: 16px; }
.student-name { font-size: 34px; margin: 6mm 0; border-bottom: 2px solid #b8860b; display: inline-block; padding: 0 14mm 2mm; }
.description { font-size: 16px; }
.course-name { font-size: 24px; font-weight: bold; margin: 4mm 0; }
.body-text { font-size: 14px; color: #44506a; }
.footer { position: absolute; bottom: 16mm; left: 18mm; right: 18mm; display: flex; justify-content: space-between; font-size: 14px; }
.signature img { height: 18mm; }
.logo img { height: 22mm; }
</style>
</head>
<body>
<div class="certificate">
  <div class="logo"><img src="{{logo_url}}" alt=""></div>
  <h1 class="title">{{certificate_title}}</h1>
  <div class="subtitle">{{certificate_subtitle}}</div>
  <p class="intro">This is to certify that</p>
  <div class="student-name">{{student_name}}</div>
  <p class="description">{{description_text}}</p>
  <div class="course-name">{{course_name}}</div>
  <p class="body-text">{{custom_body}}</p>
  <div class="footer">
    <div class="date">Issued on {{issue_date}}</div>
    <div class="value">{{certificate_id}}</div>
    <div class="signature"><img src="{{signature_image_url}}" alt="">{{signature_name}}</div>
    <div class="authority">{{issuing_authority}}</div>
  </div>
</div>
</body>
</html>`,
	},
	{
		Name:        "Clean Minimal",
		Description: "Pure white background with left accent bar and modern typography",
		HTMLContent: `<!DOCTYPE html>
<html>
<head>
<style>
@page { size: A4 landscape; margin: 0; }
body { margin: 0; font-family: Helvetica, Arial, sans-serif; color: #222; }
.certificate { width: 297mm; height: 210mm; box-sizing: border-box; padding: 20mm 20mm 20mm 30mm; border-left: 14mm solid #2d6cdf; position: relative; }
.title { font-size: 36px; font-weight: 300; letter-spacing: 6px; text-transform: uppercase; }
.student-name { font-size: 30px; font-weight: bold; margin: 10mm 0 4mm; }
.course-name { font-size: 20px; color: #2d6cdf; }
.description { margin-top: 6mm; font-size: 14px; color: #555; max-width: 180mm; }
.footer { position: absolute; bottom: 18mm; display: flex; gap: 30mm; font-size: 13px; color: #555; }
</style>
</head>
<body>
<div class="certificate">
  <h1 class="title">{{certificate_title}}</h1>
  <div class="student-name">{{student_name}}</div>
  <div class="course-name">{{course_name}}</div>
  <p class="description">{{description_text}}</p>
  <div class="footer">
    <div class="date">{{issue_date}}</div>
    <div class="value">{{certificate_id}}</div>
    <div class="authority">{{issuing_authority}}</div>
  </div>
</div>
</body>
</html>`,
	},
}

// Seed inserts the default templates when the table is empty.
func Seed(ctx context.Context, repo Repository, logger *zap.Logger) error {
	count, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for i := range defaultTemplates {
		template := defaultTemplates[i]
		template.IsActive = true
		if err := repo.Create(ctx, &template); err != nil {
			return err
		}
		logger.Info("Seeded template", zap.String("name", template.Name))
	}
	return nil
}
