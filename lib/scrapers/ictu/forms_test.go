package ictu

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func mustDocument(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

const loginFormPage = `
<html><body>
<form id="Form1" action="login.aspx">
	<input type="hidden" name="__VIEWSTATE" value="viewstate-blob" />
	<input type="hidden" name="__EVENTVALIDATION" value="validation-blob" />
	<input type="text" name="txtUserName" value="" />
	<input type="password" name="txtPassword" value="" />
	<input type="checkbox" name="chkRemember" value="on" />
	<input type="submit" id="btnSubmit" name="btnSubmit" value="Đăng nhập" />
</form>
</body></html>`

func TestSnapshotFormOverrides(t *testing.T) {
	doc := mustDocument(t, loginFormPage)

	snap, err := snapshotForm(doc, "Form1", formOptions{
		overrides: map[string]string{
			"txtUserName": "dtc245200672",
			"txtPassword": "5f4dcc3b5aa765d61d8327deb882cf99",
		},
	})
	require.NoError(t, err)

	data := snap.formData()
	require.Equal(t, "viewstate-blob", data["__VIEWSTATE"])
	require.Equal(t, "dtc245200672", data["txtUserName"])
	require.Equal(t, "5f4dcc3b5aa765d61d8327deb882cf99", data["txtPassword"])
	// unchecked checkboxes are not submitted
	require.NotContains(t, data, "chkRemember")
	// the single submit control is kept when none is named
	require.Equal(t, "Đăng nhập", data["btnSubmit"])
	require.Equal(t, "login.aspx", snap.action)

	// field order follows document order
	require.Equal(
		t,
		[]string{"__VIEWSTATE", "__EVENTVALIDATION", "txtUserName", "txtPassword", "btnSubmit"},
		snap.names,
	)
}

const exportFormPage = `
<html><body>
<form id="Form1" action="./StudentTimeTable.aspx">
	<input type="hidden" name="__VIEWSTATE" value="vs" />
	<select name="drpHocKy">
		<option value="1">Học kỳ 1</option>
		<option value="2" selected>Học kỳ 2</option>
	</select>
	<select name="drpTuan">
		<option value="10">Tuần 10</option>
		<option value="11">Tuần 11</option>
	</select>
	<textarea name="txtNote">ghi chú</textarea>
	<input type="checkbox" name="chkAll" value="on" checked />
	<input type="submit" id="btnView" name="btnView" value="Xuất file Excel" />
	<input type="submit" id="btnSearch" name="btnSearch" value="Tìm kiếm" />
</form>
</body></html>`

func TestSnapshotFormSelectAndSubmitRules(t *testing.T) {
	doc := mustDocument(t, exportFormPage)

	snap, err := snapshotForm(doc, "Form1", formOptions{
		overrides: map[string]string{
			"drpHocKy": "1",    // valid option: override wins
			"drpTuan":  "99",   // not an option: ignored
		},
		submitID: "btnView",
	})
	require.NoError(t, err)

	data := snap.formData()
	require.Equal(t, "1", data["drpHocKy"])
	// invalid override falls back to the first option (none selected)
	require.Equal(t, "10", data["drpTuan"])
	require.Equal(t, "ghi chú", data["txtNote"])
	require.Equal(t, "on", data["chkAll"])
	// only the invoked submit control is included
	require.Equal(t, "Xuất file Excel", data["btnView"])
	require.NotContains(t, data, "btnSearch")
}

func TestSnapshotFormSelectedOptionDefault(t *testing.T) {
	doc := mustDocument(t, exportFormPage)
	snap, err := snapshotForm(doc, "Form1", formOptions{submitID: "btnView"})
	require.NoError(t, err)
	require.Equal(t, "2", snap.formData()["drpHocKy"])
}

func TestSnapshotFormMissing(t *testing.T) {
	doc := mustDocument(t, `<html><body><form id="Other"></form></body></html>`)
	_, err := snapshotForm(doc, "Form1", formOptions{})
	require.Error(t, err)
}
