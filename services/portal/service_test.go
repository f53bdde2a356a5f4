package portal

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"ictu-backend/lib/scrapers/ictu"
)

const (
	testUsername = "dtc245200672"
	testPassword = "password123"
)

// newTestPortal serves the handful of pages the service operations touch.
func newTestPortal(t *testing.T) *httptest.Server {
	t.Helper()

	var sessionValid bool
	mux := http.NewServeMux()

	requireSession := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if _, err := r.Cookie("ASP.NET_SessionId"); err != nil || !sessionValid {
				http.Redirect(w, r, "/login.aspx", http.StatusFound)
				return
			}
			next(w, r)
		}
	}

	mux.HandleFunc("/login.aspx", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			fmt.Fprint(w, `<html><body>
<form id="Form1" action="login.aspx">
	<input type="hidden" name="__VIEWSTATE" value="vs" />
	<input type="text" name="txtUserName" value="" />
	<input type="password" name="txtPassword" value="" />
	<input type="submit" id="btnSubmit" name="btnSubmit" value="Đăng nhập" />
</form>
</body></html>`)
			return
		}
		sum := md5.Sum([]byte(testPassword))
		if r.PostFormValue("txtUserName") != testUsername ||
			r.PostFormValue("txtPassword") != hex.EncodeToString(sum[:]) {
			fmt.Fprint(w, `<html><body><span id="lblErrorInfo">Sai thông tin đăng nhập!</span></body></html>`)
			return
		}
		sessionValid = true
		http.SetCookie(w, &http.Cookie{Name: "ASP.NET_SessionId", Value: "s1", Path: "/"})
		fmt.Fprint(w, `<html><body>OK</body></html>`)
	})

	mux.HandleFunc("/Home.aspx", requireSession(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body>
<span id="PageHeader1_lblUserFullName">Nguyễn Anh Tuấn (DTC245200672)</span>
<span id="lblNganh">Công nghệ thông tin</span>
</body></html>`)
	}))

	mux.HandleFunc("/StudyRegister/StudyRegister.aspx", requireSession(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body>
<span id="lblDuration">Từ 08/2024 đến 06/2029</span>
<select id="drpCourse" name="drpCourse"><option value="NH2025">Năm học 2025</option></select>
</body></html>`)
	}))

	mux.HandleFunc("/StudentViewExamList.aspx", requireSession(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body>
<table id="tblCourseList">
	<tr><th>STT</th><th>Mã HP</th><th>Tên HP</th><th>Số TC</th><th>Ngày thi</th><th>Ca thi</th><th>Hình thức</th><th>SBD</th><th>Phòng</th><th>Ghi chú</th></tr>
	<tr><td>1</td><td>DB101</td><td>Cơ sở dữ liệu</td><td>3</td><td>15/01/2026</td><td>Ca 1</td><td>Tự luận</td><td>12</td><td>A101</td><td></td></tr>
	<tr><td>2</td><td>WEB202</td><td>Lập trình Web</td><td>3</td><td>18/01/2026</td><td>Ca 2</td><td>Vấn đáp</td><td>12</td><td>B202</td><td></td></tr>
</table>
</body></html>`)
	}))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestService(t *testing.T) Service {
	t.Helper()
	server := newTestPortal(t)
	client, err := ictu.NewClient(ictu.ClientOptions{BaseUrl: server.URL})
	require.NoError(t, err)
	return NewService(client)
}

func TestLogin(t *testing.T) {
	service := newTestService(t)

	result := service.Login(context.Background(), testUsername, testPassword)
	require.False(t, result.Error)
	require.Equal(t, "Đăng nhập thành công!", result.Message)
	require.Equal(t, "Nguyễn Anh Tuấn", result.Profile.Name)
	require.Equal(t, "DTC245200672", result.Profile.StudentID)
}

func TestLoginFailure(t *testing.T) {
	service := newTestService(t)

	result := service.Login(context.Background(), testUsername, "sai mật khẩu")
	require.True(t, result.Error)
	require.Equal(t, ictu.KindAuthenticationFailed, result.Kind)
	require.Equal(t, 401, result.Code)
	require.Contains(t, result.Message, "Sai thông tin")
}

func TestOperationsRequireLogin(t *testing.T) {
	service := newTestService(t)

	result := service.GetExamSchedule(context.Background())
	require.True(t, result.Error)
	require.Equal(t, ictu.KindNotAuthenticated, result.Kind)
	require.Equal(t, 401, result.Code)
}

func TestLogout(t *testing.T) {
	service := newTestService(t)
	require.False(t, service.Login(context.Background(), testUsername, testPassword).Error)

	status := service.Logout()
	require.False(t, status.Error)
	require.Equal(t, "Đã đăng xuất", status.Message)

	result := service.GetExamSchedule(context.Background())
	require.Equal(t, ictu.KindNotAuthenticated, result.Kind)
}

func TestSearchSchedule(t *testing.T) {
	service := newTestService(t)
	require.False(t, service.Login(context.Background(), testUsername, testPassword).Error)

	all := service.SearchSchedule(context.Background(), "")
	require.False(t, all.Error)
	require.Len(t, all.Exams, 2)
	require.Equal(t, "Tất cả lịch thi (2 kết quả)", all.Message)

	byName := service.SearchSchedule(context.Background(), "cơ sở")
	require.Len(t, byName.Exams, 1)
	require.Equal(t, "DB101", byName.Exams[0].CourseCode)
	require.Equal(t, "Tìm thấy 1 kết quả", byName.Message)

	byRoom := service.SearchSchedule(context.Background(), "b202")
	require.Len(t, byRoom.Exams, 1)
	require.Equal(t, "WEB202", byRoom.Exams[0].CourseCode)

	none := service.SearchSchedule(context.Background(), "không tồn tại")
	require.Empty(t, none.Exams)
	require.Equal(t, "Tìm thấy 0 kết quả", none.Message)
}
