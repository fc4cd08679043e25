package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				trigger_name VARCHAR(191) NOT NULL,
				conditions JSONB NOT NULL DEFAULT '{}',
				actions JSONB NOT NULL DEFAULT '[]',
				enabled BOOLEAN NOT NULL DEFAULT false,
				webhook_token VARCHAR(64) UNIQUE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_trigger_enabled ON workflows(trigger_name, enabled);
			CREATE INDEX idx_workflows_created_at ON workflows(created_at);

			CREATE TABLE workflow_jobs (
				id BIGSERIAL PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				payload JSONB NOT NULL DEFAULT '{}',
				status VARCHAR(20) NOT NULL DEFAULT 'pending'
					CHECK (status IN ('pending', 'processing', 'completed', 'failed')),
				attempts INTEGER NOT NULL DEFAULT 0,
				max_attempts INTEGER NOT NULL DEFAULT 3,
				scheduled_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_workflow_jobs_status_scheduled ON workflow_jobs(status, scheduled_at);
			CREATE INDEX idx_workflow_jobs_workflow_id ON workflow_jobs(workflow_id);
			CREATE INDEX idx_workflow_jobs_created_at ON workflow_jobs(created_at);

			CREATE TABLE execution_logs (
				id BIGSERIAL PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL DEFAULT '',
				trigger_name VARCHAR(191) NOT NULL DEFAULT '',
				level VARCHAR(20) NOT NULL DEFAULT 'info',
				message TEXT NOT NULL,
				context JSONB NOT NULL DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX idx_execution_logs_workflow_id ON execution_logs(workflow_id);
			CREATE INDEX idx_execution_logs_level ON execution_logs(level);
			CREATE INDEX idx_execution_logs_created_at ON execution_logs(created_at);
		`,
		2: `
			-- Host entities the meta actions write to
			CREATE TABLE entities (
				kind VARCHAR(20) NOT NULL,
				id BIGINT NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (kind, id)
			);

			CREATE TABLE entity_meta (
				kind VARCHAR(20) NOT NULL,
				entity_id BIGINT NOT NULL,
				meta_key VARCHAR(255) NOT NULL,
				meta_value TEXT NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (kind, entity_id, meta_key),
				FOREIGN KEY (kind, entity_id) REFERENCES entities(kind, id) ON DELETE CASCADE
			);
		`,
	}
}
