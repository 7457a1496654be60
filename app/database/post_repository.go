package database

import (
	"fmt"
)

var _ PostRepository = (*PostRepositoryImpl)(nil)

// PostRepositoryImpl handles database operations for the raw post cache.
// The cache is append-only: posts are never updated or deleted.
type PostRepositoryImpl struct {
	db *DB
}

func NewPostRepository(db *DB) *PostRepositoryImpl {
	return &PostRepositoryImpl{db: db}
}

// MergePosts inserts fetched posts, silently dropping any whose shortcode is
// already cached for the account, and returns the newly added subset. Merge
// is idempotent across repeated poll cycles.
func (r *PostRepositoryImpl) MergePosts(accountName string, posts []NewPost) ([]NewPost, error) {
	var added []NewPost

	for _, post := range posts {
		result, err := r.db.Exec(`
			INSERT INTO posts (account_name, shortcode, image_url, caption, image_description, taken_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (account_name, shortcode) DO NOTHING
		`, accountName, post.Shortcode, post.ImageURL, post.Caption,
			post.ImageDescription, post.TakenAt.UTC())
		if err != nil {
			return nil, fmt.Errorf("failed to merge post %s: %w", post.Shortcode, err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to read merge result for post %s: %w", post.Shortcode, err)
		}

		if affected > 0 {
			added = append(added, post)
		}
	}

	return added, nil
}

func (r *PostRepositoryImpl) GetPosts(accountName string) ([]Post, error) {
	rows, err := r.db.Query(`
		SELECT id, account_name, shortcode, COALESCE(image_url, ''),
		       COALESCE(caption, ''), COALESCE(image_description, ''),
		       taken_at, created_at
		FROM posts
		WHERE account_name = ?
		ORDER BY taken_at DESC
	`, accountName)
	if err != nil {
		return nil, fmt.Errorf("failed to get posts: %w", err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var post Post
		err := rows.Scan(
			&post.ID, &post.AccountName, &post.Shortcode, &post.ImageURL,
			&post.Caption, &post.ImageDescription, &post.TakenAt, &post.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}

	return posts, nil
}

func (r *PostRepositoryImpl) GetPostCount() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM posts").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get post count: %w", err)
	}
	return count, nil
}
