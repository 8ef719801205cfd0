package password

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool はハッシュ検証専用の有限ワーカープールです。
//
// Argon2id の検証は意図的に数十ミリ秒のCPU時間を消費するため、
// リクエスト処理のゴルーチン上で直接実行せず、同時実行数を
// セマフォで制限した専用ゴルーチンに退避させます。
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool は同時実行数 size のプールを作成します。
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size))}
}

// Verify は検証をプールに投入し、完了を待って結果を返します。
//
// ctx はスロット取得の待機にのみ適用されます。一度投入した検証は
// クライアントが切断しても中断せず最後まで実行します。途中で
// 放棄するとタイミング特性が崩れるためです。
func (p *Pool) Verify(ctx context.Context, encodedHash string, candidate string) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		defer p.sem.Release(1)
		done <- Verify(encodedHash, candidate)
	}()
	return <-done
}
