package main

import (
	"context"

	"sw360-console/cmd/console/workspace"
	"sw360-console/config"
	"sw360-console/notify"
	"sw360-console/session"
)

// startSweeper 는 로그아웃 없이 끝난 세션(만료, 저장소에서 삭제, 장시간 방치)의
// 목록 화면과 알림을 주기적으로 정리한다. 반환된 함수는 정리 루프를 멈춘다.
func startSweeper(ctx context.Context, cfg config.SessionConfig, ws *workspace.Workspace, flash *notify.Flash, sessions *session.Manager) func() {
	ctx, cancel := context.WithCancel(ctx)
	alive := workspace.ManagerLiveness(sessions)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ws.RunSweeper(ctx, cfg.SweepInterval, cfg.IdleTimeout, alive, func(swept []session.ID) {
			for _, id := range swept {
				flash.Forget(string(id))
			}
			flash.Prune(func(key string) bool { return alive(ctx, session.ID(key)) })
		})
	}()
	return func() {
		cancel()
		<-done
	}
}
