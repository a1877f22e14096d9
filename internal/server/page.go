package server

import (
	"fmt"
	"net/http"

	. "maragu.dev/gomponents"
	. "maragu.dev/gomponents/html"
)

func renderHTML(w http.ResponseWriter, status int, node Node) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = node.Render(w)
}

const pageCSS = `body{font-family:system-ui,sans-serif;margin:0;background:#f6f8fa;color:#1f2328}
main{max-width:960px;margin:2rem auto;padding:0 1rem}
.card{background:#fff;border:1px solid #d0d7de;border-radius:6px;padding:1rem 1.25rem;margin-bottom:1rem}
.error{color:#cf222e}
.graphs img{max-width:100%;border:1px solid #d0d7de;margin:.5rem 0}
pre{background:#f6f8fa;padding:.75rem;overflow:auto;max-height:28rem}`

// uploadScript posts the form and renders the JSON result in place.
const uploadScript = `document.getElementById('upload-form').addEventListener('submit', async function (e) {
  e.preventDefault();
  var out = document.getElementById('result'), gallery = document.getElementById('graphs');
  out.textContent = 'Analysing...'; out.className = ''; gallery.innerHTML = '';
  try {
    var resp = await fetch('/upload', { method: 'POST', body: new FormData(e.target) });
    var body = await resp.json();
    if (!resp.ok) { out.textContent = body.error || resp.statusText; out.className = 'error'; return; }
    out.textContent = JSON.stringify(body.analysis, null, 2);
    (body.graphs || []).forEach(function (u) { var img = document.createElement('img'); img.src = u; img.alt = u; gallery.appendChild(img); });
  } catch (err) { out.textContent = String(err); out.className = 'error'; }
});`

func indexPage(maxBytes int64) Node {
	return Doctype(HTML(
		Lang("en"),
		Head(
			Meta(Charset("utf-8")),
			Meta(Name("viewport"), Content("width=device-width, initial-scale=1")),
			TitleEl(Text("CSV Explorer")),
			Link(Rel("icon"), Href("data:,")),
			StyleEl(Raw(pageCSS)),
		),
		Body(
			Main(
				H1(Text("CSV Explorer")),
				Div(Class("card"),
					P(Text(fmt.Sprintf("Upload a CSV file (up to %d MB) to get a column profile and charts.", maxBytes>>20))),
					Form(
						ID("upload-form"),
						Method("post"),
						Action("/upload"),
						Attr("enctype", "multipart/form-data"),
						Label(Attr("for", UploadField), Text("CSV file ")),
						Input(ID(UploadField), Type("file"), Name(UploadField), Attr("accept", ".csv"), Required()),
						Button(Type("submit"), Text("Analyse")),
					),
				),
				Div(Class("card"),
					H2(Text("Summary")),
					Pre(ID("result"), Text("No file analysed yet.")),
				),
				Div(Class("card graphs"), ID("graphs")),
			),
			Script(Raw(uploadScript)),
		),
	))
}
