// Package ictu implements an authenticated client for the ICTU academic
// portal. The portal exposes no API: every operation logs in through the
// portal's own login form, keeps its session cookies alive, and extracts
// records from server-rendered pages and spreadsheet exports.
package ictu

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"ictu-backend/lib/htmlutil"
	"ictu-backend/lib/restyutil"
	"ictu-backend/lib/sheetutil"
)

var tracer = otel.Tracer("scrapers/ictu")

const (
	loginPath         = "/login.aspx"
	homePath          = "/Home.aspx"
	examListPath      = "/StudentViewExamList.aspx"
	markPath          = "/StudentMark.aspx"
	studyRegisterPath = "/StudyRegister/StudyRegister.aspx"
	timetablePath     = "/Reports/Form/StudentTimeTable.aspx"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Client owns one authenticated portal identity. It is not safe for sharing
// across logical users: cookies and the stored credential live on the
// instance, so each identity needs its own Client.
type Client struct {
	baseUrl *url.URL
	http    *resty.Client

	loggedIn     bool
	lastUsername string
	// md5 digest of the password, which is what the login form submits;
	// the plaintext is never retained
	lastSecret string
}

type ClientOptions struct {
	BaseUrl string
}

func NewClient(opts ClientOptions) (*Client, error) {
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseUrl: baseUrl,
		http:    newSessionClient(opts.BaseUrl),
	}, nil
}

// newSessionClient builds a fresh cookie-bearing session carrier with the
// browser-identifying header set the portal expects.
func newSessionClient(baseUrl string) *resty.Client {
	client := resty.New()
	client.SetBaseURL(baseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		panic(err)
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", userAgent)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	client.SetTimeout(time.Second * 30)

	restyutil.InstrumentClient(client, "scrapers/ictu/http")
	return client
}

func hashPassword(password string) string {
	sum := md5.Sum([]byte(password))
	return hex.EncodeToString(sum[:])
}

func parseDocument(res *resty.Response) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
}

// finalURL reports where the response actually landed after redirects.
func finalURL(res *resty.Response) *url.URL {
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		return res.RawResponse.Request.URL
	}
	return nil
}

func landedOnLogin(res *resty.Response) bool {
	final := finalURL(res)
	return final != nil && strings.Contains(strings.ToLower(final.String()), "login.aspx")
}

// Login authenticates against the portal and resolves the student's profile.
// The credential is kept in memory (username + password digest) so an
// expired session can be replayed later.
func (c *Client) Login(ctx context.Context, username, password string) (Profile, error) {
	return c.login(ctx, username, hashPassword(password))
}

func (c *Client) login(ctx context.Context, username, secret string) (Profile, error) {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	res, err := c.http.R().SetContext(ctx).Get(loginPath)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch login page")
		return Profile{}, transportError(err, "fetching login page")
	}
	if res.StatusCode() != 200 {
		span.SetStatus(codes.Error, "login page unavailable")
		return Profile{}, newError(KindUpstreamUnavailable, res.StatusCode(),
			"login page returned HTTP %d", res.StatusCode())
	}
	doc, err := parseDocument(res)
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse login page")
		return Profile{}, newError(KindParseFailure, 500, "cannot parse login page: %v", err)
	}

	snap, err := snapshotForm(doc, "Form1", formOptions{
		overrides: map[string]string{
			"txtUserName": username,
			"txtPassword": secret,
		},
	})
	if err != nil {
		span.SetStatus(codes.Error, "login form not found")
		return Profile{}, newError(KindParseFailure, 404, "login form not found")
	}

	// submit back to wherever the login page landed, the portal rewrites
	// its form action through redirects
	submitTo := loginPath
	if final := finalURL(res); final != nil {
		submitTo = final.String()
	}
	loginRes, err := c.http.R().
		SetContext(ctx).
		SetFormData(snap.formData()).
		Post(submitTo)
	if err != nil {
		span.SetStatus(codes.Error, "failed to submit login form")
		return Profile{}, transportError(err, "submitting login form")
	}
	loginDoc, err := parseDocument(loginRes)
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse login response")
		return Profile{}, newError(KindParseFailure, 500, "cannot parse login response: %v", err)
	}
	if banner := htmlutil.CleanText(loginDoc.Find("span#lblErrorInfo")); banner != "" {
		span.SetStatus(codes.Error, "portal rejected credentials")
		return Profile{}, newError(KindAuthenticationFailed, 401, "%s", banner)
	}

	profile, err := c.resolveProfile(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "failed to resolve profile")
		return Profile{}, err
	}
	profile.Email = fmt.Sprintf("%s@ictu.edu.vn", username)

	c.loggedIn = true
	c.lastUsername = username
	c.lastSecret = secret

	slog.InfoContext(
		ctx, "login succeeded",
		"username", username,
		"student_id", profile.StudentID,
	)
	return profile, nil
}

// resolveProfile reads the home page for the student's display name and
// program, falling back to the timetable report for the program, then the
// study-registration page for the enrollment-duration text.
func (c *Client) resolveProfile(ctx context.Context) (Profile, error) {
	res, err := c.http.R().SetContext(ctx).Get(homePath)
	if err != nil {
		return Profile{}, transportError(err, "fetching home page")
	}
	if res.StatusCode() != 200 {
		return Profile{}, newError(KindUpstreamUnavailable, res.StatusCode(),
			"home page returned HTTP %d", res.StatusCode())
	}
	doc, err := parseDocument(res)
	if err != nil {
		return Profile{}, newError(KindParseFailure, 500, "cannot parse home page: %v", err)
	}

	display := htmlutil.CleanText(doc.Find("span#PageHeader1_lblUserFullName"))
	if display == "" {
		return Profile{}, newError(KindParseFailure, 404, "student info not found on home page")
	}
	name, studentID := splitDisplayName(display)

	major := resolveMajor(doc)
	if major == "" || major == MajorUnknown {
		if fromTimetable := c.majorFromTimetablePage(ctx); fromTimetable != "" {
			major = fromTimetable
		}
	}
	if major == "" {
		major = MajorUnknown
	}

	duration := "N/A"
	regRes, err := c.http.R().SetContext(ctx).Get(studyRegisterPath)
	if err == nil && regRes.StatusCode() == 200 {
		if regDoc, err := parseDocument(regRes); err == nil {
			if text := htmlutil.CleanText(regDoc.Find("span#lblDuration")); text != "" {
				duration = text
			}
		}
	}

	return Profile{
		Name:            name,
		StudentID:       studentID,
		StudentDuration: duration,
		Major:           major,
	}, nil
}

func (c *Client) majorFromTimetablePage(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, time.Second*15)
	defer cancel()

	res, err := c.http.R().SetContext(ctx).Get(timetablePath)
	if err != nil || res.StatusCode() != 200 {
		return ""
	}
	doc, err := parseDocument(res)
	if err != nil {
		return ""
	}
	return resolveMajorFromTimetable(doc)
}

// EnsureLoggedIn validates the session with a lightweight probe and replays
// the stored credential exactly once when the portal dropped the session. A
// client that never logged in fails immediately without touching the
// network.
func (c *Client) EnsureLoggedIn(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "client:EnsureLoggedIn")
	defer span.End()

	if !c.loggedIn {
		span.SetStatus(codes.Error, "not authenticated")
		return newError(KindNotAuthenticated, 401, "chưa đăng nhập vào hệ thống")
	}

	if c.probeSession(ctx) {
		return nil
	}

	slog.WarnContext(ctx, "session expired, re-logging in", "username", c.lastUsername)
	c.loggedIn = false
	c.http = newSessionClient(c.baseUrl.String())

	if _, err := c.login(ctx, c.lastUsername, c.lastSecret); err != nil {
		span.SetStatus(codes.Error, "re-login failed")
		return newError(KindSessionExpired, 401,
			"phiên đăng nhập đã hết hạn, vui lòng đăng nhập lại")
	}
	return nil
}

// probeSession hits a protected page; a redirect back to the login page (or
// any failure) means the session is gone.
func (c *Client) probeSession(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	res, err := c.http.R().SetContext(ctx).Get(studyRegisterPath)
	if err != nil {
		slog.DebugContext(ctx, "session probe failed", "err", err)
		return false
	}
	if landedOnLogin(res) {
		return false
	}
	return res.StatusCode() == 200
}

// Logout discards the credential and all session state. Idempotent; the
// client afterwards is indistinguishable from a freshly constructed one.
func (c *Client) Logout() {
	c.loggedIn = false
	c.lastUsername = ""
	c.lastSecret = ""
	c.http = newSessionClient(c.baseUrl.String())
	slog.Debug("logged out")
}

// GetExamSchedule extracts the exam-schedule table. Upstream sometimes
// renders duplicate rows; they are preserved as-is.
func (c *Client) GetExamSchedule(ctx context.Context) ([]ExamRecord, error) {
	ctx, span := tracer.Start(ctx, "client:GetExamSchedule")
	defer span.End()

	if err := c.EnsureLoggedIn(ctx); err != nil {
		return nil, err
	}

	res, err := c.http.R().SetContext(ctx).Get(examListPath)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch exam list")
		return nil, transportError(err, "fetching exam schedule")
	}
	if landedOnLogin(res) {
		return nil, newError(KindSessionExpired, 401, "phiên đăng nhập đã hết hạn")
	}
	if res.StatusCode() != 200 {
		return nil, newError(KindUpstreamUnavailable, res.StatusCode(),
			"exam schedule page returned HTTP %d", res.StatusCode())
	}
	doc, err := parseDocument(res)
	if err != nil {
		return nil, newError(KindParseFailure, 500, "cannot parse exam schedule page: %v", err)
	}

	rows, err := tableCellRows(doc, "tblCourseList")
	if err != nil {
		span.SetStatus(codes.Error, "exam table not found")
		return nil, newError(KindParseFailure, 404, "%v", err)
	}

	var exams []ExamRecord
	for i := 1; i < len(rows); i++ {
		cells := rows[i]
		if len(cells) < 10 || cells[0] == "" {
			continue
		}
		exams = append(exams, ExamRecord{
			SequenceNo:      cells[0],
			CourseCode:      cells[1],
			CourseName:      cells[2],
			Credits:         cells[3],
			ExamDate:        cells[4],
			ExamSlot:        cells[5],
			ExamFormat:      cells[6],
			CandidateNumber: cells[7],
			Room:            cells[8],
			Note:            cells[9],
		})
	}

	slog.DebugContext(ctx, "extracted exam schedule", "rows", len(exams))
	return exams, nil
}

// GetScores extracts per-course scores and the per-term GPA summaries.
func (c *Client) GetScores(ctx context.Context) ([]ScoreRecord, []TermSummary, error) {
	ctx, span := tracer.Start(ctx, "client:GetScores")
	defer span.End()

	if err := c.EnsureLoggedIn(ctx); err != nil {
		return nil, nil, err
	}

	res, err := c.http.R().SetContext(ctx).Get(markPath)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch scores")
		return nil, nil, transportError(err, "fetching scores")
	}
	if landedOnLogin(res) {
		return nil, nil, newError(KindSessionExpired, 401, "phiên đăng nhập đã hết hạn")
	}
	if res.StatusCode() != 200 {
		return nil, nil, newError(KindUpstreamUnavailable, res.StatusCode(),
			"score page returned HTTP %d", res.StatusCode())
	}
	doc, err := parseDocument(res)
	if err != nil {
		return nil, nil, newError(KindParseFailure, 500, "cannot parse score page: %v", err)
	}

	detailRows, err := tableCellRows(doc, "tblMarkDetail")
	if err != nil {
		detailRows, err = tableCellRows(doc, "tblStudentMark")
	}
	if err != nil {
		span.SetStatus(codes.Error, "score detail table not found")
		return nil, nil, newError(KindParseFailure, 404, "score detail table not found")
	}
	sumRows, err := tableCellRows(doc, "tblSumMark")
	if err != nil {
		span.SetStatus(codes.Error, "score summary table not found")
		return nil, nil, newError(KindParseFailure, 404, "score summary table not found")
	}

	// both tables carry a two-row header
	var scores []ScoreRecord
	for i := 2; i < len(detailRows); i++ {
		cells := detailRows[i]
		if len(cells) < 14 {
			continue
		}
		scores = append(scores, ScoreRecord{
			SequenceNo:      cells[0],
			CourseCode:      cells[1],
			CourseName:      cells[2],
			Credits:         cells[3],
			EvaluationText:  cells[8],
			AttendanceScore: cells[10],
			ExamScore:       cells[11],
			FinalScore:      cells[12],
			LetterGrade:     cells[13],
		})
	}

	var terms []TermSummary
	for i := 2; i < len(sumRows); i++ {
		cells := sumRows[i]
		if len(cells) < 14 {
			continue
		}
		terms = append(terms, TermSummary{
			AcademicYear: cells[0],
			Term:         cells[1],
			GPA10:        cells[2],
			GPA4:         cells[4],
			TotalCredits: cells[6],
			TermGPA10:    cells[8],
			TermGPA4:     cells[10],
		})
	}

	slog.DebugContext(ctx, "extracted scores", "courses", len(scores), "terms", len(terms))
	return scores, terms, nil
}

// GetStudyRegistration reads the enrollment-duration text and the course
// dropdown from the study-registration page.
func (c *Client) GetStudyRegistration(ctx context.Context) (Registration, error) {
	ctx, span := tracer.Start(ctx, "client:GetStudyRegistration")
	defer span.End()

	if err := c.EnsureLoggedIn(ctx); err != nil {
		return Registration{}, err
	}

	res, err := c.http.R().SetContext(ctx).Get(studyRegisterPath)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch study registration")
		return Registration{}, transportError(err, "fetching study registration")
	}
	if landedOnLogin(res) {
		return Registration{}, newError(KindSessionExpired, 401, "phiên đăng nhập đã hết hạn")
	}
	if res.StatusCode() != 200 {
		return Registration{}, newError(KindUpstreamUnavailable, res.StatusCode(),
			"study registration page returned HTTP %d", res.StatusCode())
	}
	doc, err := parseDocument(res)
	if err != nil {
		return Registration{}, newError(KindParseFailure, 500,
			"cannot parse study registration page: %v", err)
	}

	reg := Registration{
		StudentDuration: htmlutil.CleanText(doc.Find("span#lblDuration")),
	}

	courseSelect := doc.Find("select#drpCourse").First()
	if courseSelect.Length() == 0 {
		span.SetStatus(codes.Error, "course dropdown not found")
		return Registration{}, newError(KindParseFailure, 404, "course dropdown not found")
	}
	courseSelect.Find("option").Each(func(_ int, opt *goquery.Selection) {
		value := opt.AttrOr("value", "")
		if value == "" {
			return
		}
		reg.Courses = append(reg.Courses, CourseOption{
			Value: value,
			Text:  htmlutil.CleanText(opt),
		})
	})

	return reg, nil
}

// GetTimetable prefers the spreadsheet export (which carries week rows,
// meeting links and lesson types) and falls back to the HTML grid when the
// export cannot be fetched or decoded.
func (c *Client) GetTimetable(ctx context.Context, opts TimetableOptions) (Timetable, error) {
	ctx, span := tracer.Start(ctx, "client:GetTimetable")
	defer span.End()

	if err := c.EnsureLoggedIn(ctx); err != nil {
		return Timetable{}, err
	}

	timetable, excelErr := c.timetableFromExport(ctx, opts)
	if excelErr == nil {
		return timetable, nil
	}
	slog.WarnContext(ctx, "spreadsheet timetable failed, falling back to html", "err", excelErr)

	timetable, htmlErr := c.timetableFromHTML(ctx)
	if htmlErr != nil {
		span.SetStatus(codes.Error, "both timetable sources failed")
		return Timetable{}, htmlErr
	}
	return timetable, nil
}

func (c *Client) timetableFromExport(ctx context.Context, opts TimetableOptions) (Timetable, error) {
	ctx, span := tracer.Start(ctx, "client:timetableFromExport")
	defer span.End()

	res, err := c.http.R().SetContext(ctx).Get(timetablePath)
	if err != nil {
		return Timetable{}, transportError(err, "fetching timetable page")
	}
	if res.StatusCode() != 200 {
		return Timetable{}, newError(KindUpstreamUnavailable, res.StatusCode(),
			"timetable page returned HTTP %d", res.StatusCode())
	}
	doc, err := parseDocument(res)
	if err != nil {
		return Timetable{}, newError(KindParseFailure, 500, "cannot parse timetable page: %v", err)
	}

	submitID := exportButtonID(doc)
	if submitID == "" {
		span.SetStatus(codes.Error, "export button not found")
		return Timetable{}, newError(KindParseFailure, 404, "excel export button not found")
	}

	overrides := map[string]string{}
	if opts.Semester != "" {
		overrides["drpHocKy"] = opts.Semester
	}
	if opts.AcademicYear != "" {
		overrides["drpNamHoc"] = opts.AcademicYear
	}
	if opts.Week != "" {
		overrides["drpTuan"] = opts.Week
	}

	snap, err := snapshotForm(doc, "Form1", formOptions{
		overrides: overrides,
		submitID:  submitID,
	})
	if err != nil {
		span.SetStatus(codes.Error, "timetable form not found")
		return Timetable{}, newError(KindParseFailure, 404, "timetable form not found")
	}

	pageURL := finalURL(res)
	if pageURL == nil {
		pageURL = c.baseUrl.JoinPath(timetablePath)
	}
	action := pageURL
	if snap.action != "" {
		resolved, err := pageURL.Parse(snap.action)
		if err == nil {
			action = resolved
		}
	}

	download, err := c.http.R().
		SetContext(ctx).
		SetFormData(snap.formData()).
		SetHeader("Referer", pageURL.String()).
		SetHeader("Origin", fmt.Sprintf("%s://%s", pageURL.Scheme, pageURL.Host)).
		Post(action.String())
	if err != nil {
		return Timetable{}, transportError(err, "downloading timetable export")
	}
	if download.StatusCode() != 200 || !isSpreadsheetResponse(download) {
		span.SetStatus(codes.Error, "export is not a spreadsheet")
		return Timetable{}, newError(KindExportUnavailable, 502,
			"export returned %q instead of a spreadsheet",
			download.Header().Get("content-type"))
	}

	rows, err := sheetutil.ReadRows(download.Body())
	if err != nil {
		span.SetStatus(codes.Error, "failed to decode export")
		return Timetable{}, newError(KindExportUnavailable, 502, "cannot decode export: %v", err)
	}

	return parseTimetableSheet(ctx, rows), nil
}

// exportButtonID locates the Excel-export submit control, by its well-known
// id first and by its label as a fallback.
func exportButtonID(doc *goquery.Document) string {
	if doc.Find("input#btnView").Length() > 0 {
		return "btnView"
	}
	id := ""
	doc.Find("input[type=submit]").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(el.AttrOr("value", "")), "excel") {
			id = el.AttrOr("id", "")
			return id == ""
		}
		return true
	})
	return id
}

func isSpreadsheetResponse(res *resty.Response) bool {
	contentType := strings.ToLower(res.Header().Get("content-type"))
	disposition := strings.ToLower(res.Header().Get("content-disposition"))

	for _, marker := range []string{
		"excel",
		"spreadsheet",
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats",
	} {
		if strings.Contains(contentType, marker) {
			return true
		}
	}
	return strings.Contains(disposition, "excel") || strings.Contains(disposition, ".xls")
}

func (c *Client) timetableFromHTML(ctx context.Context) (Timetable, error) {
	ctx, span := tracer.Start(ctx, "client:timetableFromHTML")
	defer span.End()

	res, err := c.http.R().SetContext(ctx).Get(timetablePath)
	if err != nil {
		return Timetable{}, transportError(err, "fetching timetable page")
	}
	if res.StatusCode() != 200 {
		return Timetable{}, newError(KindUpstreamUnavailable, res.StatusCode(),
			"timetable page returned HTTP %d", res.StatusCode())
	}
	doc, err := parseDocument(res)
	if err != nil {
		return Timetable{}, newError(KindParseFailure, 500, "cannot parse timetable page: %v", err)
	}

	headers, rows, err := extractTable(doc, "grdStudentTimeTable")
	if err != nil {
		span.SetStatus(codes.Error, "timetable grid not found")
		return Timetable{}, newError(KindParseFailure, 404, "%v", err)
	}

	slog.DebugContext(ctx, "extracted html timetable", "rows", len(rows))
	return htmlTimetable(headers, rows), nil
}

// GetTimetableOptions reads the filter dropdowns (semester, academic year,
// week) so callers can present valid export filters.
func (c *Client) GetTimetableOptions(ctx context.Context) (map[string][]CourseOption, error) {
	ctx, span := tracer.Start(ctx, "client:GetTimetableOptions")
	defer span.End()

	if err := c.EnsureLoggedIn(ctx); err != nil {
		return nil, err
	}

	res, err := c.http.R().SetContext(ctx).Get(timetablePath)
	if err != nil {
		return nil, transportError(err, "fetching timetable page")
	}
	if res.StatusCode() != 200 {
		return nil, newError(KindUpstreamUnavailable, res.StatusCode(),
			"timetable page returned HTTP %d", res.StatusCode())
	}
	doc, err := parseDocument(res)
	if err != nil {
		return nil, newError(KindParseFailure, 500, "cannot parse timetable page: %v", err)
	}

	options := map[string][]CourseOption{}
	for field, id := range map[string]string{
		"semester": "drpHocKy",
		"year":     "drpNamHoc",
		"week":     "drpTuan",
	} {
		doc.Find("select#"+id).First().Find("option").Each(func(_ int, opt *goquery.Selection) {
			options[field] = append(options[field], CourseOption{
				Value: opt.AttrOr("value", ""),
				Text:  htmlutil.CleanText(opt),
			})
		})
	}
	return options, nil
}
