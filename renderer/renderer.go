// Package renderer drives a headless Chrome against a running console.
package renderer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

const USER_AGENT = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36 sw360ctl"

type Options struct {
	// ChromePath defaults to $CHROME_PATH, then /usr/bin/chromium-browser.
	ChromePath string
	Timeout    time.Duration
	// MaxRefreshes bounds how many processing reloads are waited out.
	MaxRefreshes int
}

// Result is what a list page showed once it stopped processing.
type Result struct {
	URL     string
	Heading string
	Rows    int
	Summary string
	Alerts  []string
}

var ErrStillProcessing = errors.New("list page kept showing the processing indicator")

// allocatorOptions 는 Docker 안에서도 뜨도록 샌드박스와 GPU 를 끈다.
func allocatorOptions(o Options) []chromedp.ExecAllocatorOption {
	chromePath := o.ChromePath
	if chromePath == "" {
		chromePath = os.Getenv("CHROME_PATH")
	}
	if chromePath == "" {
		chromePath = "/usr/bin/chromium-browser" // Docker/Linux 기본
	}

	return append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(chromePath),
		chromedp.UserAgent(USER_AGENT),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-crashpad", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("headless", true),
	)
}

// SignInURL 은 로그인 후 resource 목록으로 돌아오는 로그인 화면 주소이다.
func SignInURL(baseURL, resource string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/signin")
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("console url must be absolute: %q", baseURL)
	}
	u.RawQuery = url.Values{"next": {"/" + strings.Trim(resource, "/")}}.Encode()
	return u.String(), nil
}

// SmokeTest signs in through the console's form, lands on the resource list
// and waits until the list is no longer processing.
func SmokeTest(ctx context.Context, baseURL, username, password, resource string, o Options) (Result, error) {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.MaxRefreshes <= 0 {
		o.MaxRefreshes = 10
	}
	signIn, err := SignInURL(baseURL, resource)
	if err != nil {
		return Result{}, err
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, allocatorOptions(o)...)
	defer cancel()
	ctx, cancel = chromedp.NewContext(allocCtx)
	defer cancel()
	ctx, cancel = context.WithTimeout(ctx, o.Timeout)
	defer cancel()

	err = chromedp.Run(ctx,
		chromedp.Navigate(signIn),
		chromedp.WaitVisible(`input[name="username"]`, chromedp.ByQuery),
		chromedp.SendKeys(`input[name="username"]`, username, chromedp.ByQuery),
		chromedp.SendKeys(`input[name="password"]`, password, chromedp.ByQuery),
		chromedp.Submit(`form.signin`, chromedp.ByQuery),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return Result{}, fmt.Errorf("sign in: %w", err)
	}

	// 목록이 처리 중이면 페이지가 1초마다 새로고침된다.
	for attempt := 0; ; attempt++ {
		var processing bool
		err = chromedp.Run(ctx,
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Evaluate(`document.querySelector('.table-processing') !== null`, &processing),
		)
		if err != nil {
			return Result{}, err
		}
		if !processing {
			break
		}
		if attempt >= o.MaxRefreshes {
			return Result{}, ErrStillProcessing
		}
		if err := chromedp.Run(ctx, chromedp.Sleep(time.Second)); err != nil {
			return Result{}, err
		}
	}

	var res Result
	var onSignIn bool
	err = chromedp.Run(ctx,
		chromedp.Location(&res.URL),
		chromedp.Text("h1", &res.Heading, chromedp.ByQuery),
		chromedp.Evaluate(`document.querySelector('form.signin') !== null`, &onSignIn),
		chromedp.Evaluate(`document.querySelectorAll('tr[data-key]').length`, &res.Rows),
		chromedp.Evaluate(`Array.from(document.querySelectorAll('[role="alert"] span, p[role="alert"]')).map(e => e.textContent.trim())`, &res.Alerts),
		chromedp.Evaluate(`(document.querySelector('.entries') || {textContent: ''}).textContent.trim()`, &res.Summary),
	)
	if err != nil {
		return Result{}, err
	}
	if onSignIn {
		msg := "still on the sign-in page"
		if len(res.Alerts) > 0 {
			msg += ": " + strings.Join(res.Alerts, "; ")
		}
		return res, errors.New(msg)
	}
	return res, nil
}
